package repository

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgreSQLのエラーコード
const (
	pqUniqueViolation = "23505"
)

// isUniqueViolation は一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

// validID はUUIDとして解釈できるIDかどうかを返す。
// UUID列に不正な文字列を渡すとPostgreSQLが型エラーを返すため、クエリ前に弾いて未検出として扱う。
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// likePattern はILIKE用に特殊文字をエスケープした部分一致パターンを返す。
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}
