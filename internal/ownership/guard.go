// Package ownership は変更系操作の所有者チェックを提供する。
//
// 記事・コメント・ユーザーの更新と削除は、すべてこのパッケージのGuardを通す。
// 判定は「存在しない → NOT_FOUND」「所有者でない → FORBIDDEN」の順に行う。
// 管理者による例外はない。
package ownership

import (
	"context"
	"fmt"

	"github.com/hitoshi/writewise/internal/model"
)

// Owned は所有者を持つリソース。
type Owned interface {
	OwnerID() string
}

// Resource はGuardが扱うリソースの型制約。
// 未検出をゼロ値（nilポインタ）で表すため、比較可能であることを要求する。
type Resource interface {
	comparable
	Owned
}

// AssertOwner はidentityがresourceの所有者であればnilを返す。
// そうでなければ "Not authorized to <action>" のFORBIDDENエラーを返す。
// identityがnil（匿名）の場合は常にFORBIDDEN。
func AssertOwner(identity *model.Identity, resource Owned, action string) error {
	if identity == nil || identity.SubjectID == "" || identity.SubjectID != resource.OwnerID() {
		return model.NewForbiddenError(action)
	}
	return nil
}

// FetchFunc はIDからリソースを取得する。見つからない場合はゼロ値とnilを返す。
type FetchFunc[T Resource] func(ctx context.Context, id string) (T, error)

// Guard はリソースの取得と所有者チェックをまとめて行う。
type Guard[T Resource] struct {
	kind  string
	fetch FetchFunc[T]
}

// NewGuard はGuardを生成する。kindは "Post" のようなエラーメッセージ用の表示名。
func NewGuard[T Resource](kind string, fetch FetchFunc[T]) *Guard[T] {
	return &Guard[T]{kind: kind, fetch: fetch}
}

// Authorize はidのリソースを取得し、identityが所有者であればそれを返す。
// actionは "update this post" のような動詞句で、FORBIDDEN時のメッセージに使う。
func (g *Guard[T]) Authorize(ctx context.Context, identity *model.Identity, id, action string) (T, error) {
	var zero T

	res, err := g.fetch(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("failed to fetch %s for authorization: %w", g.kind, err)
	}
	if res == zero {
		return zero, model.NewNotFoundError(g.kind)
	}
	if err := AssertOwner(identity, res, action); err != nil {
		return zero, err
	}
	return res, nil
}
