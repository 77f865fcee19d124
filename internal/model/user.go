package model

import "time"

// Provider はユーザーの認証方式を表す。
type Provider string

const (
	// ProviderLocal はメールアドレスとパスワードによる認証。
	ProviderLocal Provider = "local"
	// ProviderGoogle はGoogle OAuthによる認証。
	ProviderGoogle Provider = "google"
)

// User はサービス利用ユーザーを表す。
// PasswordHashはProviderがlocalの場合のみ値を持ち、JSONには決して出力しない。
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash *string   `json:"-"`
	Provider     Provider  `json:"provider"`
	ProviderID   *string   `json:"providerId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OwnerID はプロフィール更新・アカウント削除時の所有者判定に使うID。
// ユーザー自身が所有者となる。
func (u *User) OwnerID() string {
	return u.ID
}

// Identity はリクエスト単位で解決される認証済みの主体を表す。
// セッショントークンのペイロードから復元され、リクエスト処理中は変更されない。
// 匿名リクエストではnilで表す。
type Identity struct {
	SubjectID string
	Email     string
	Name      string
}

// IdentityOf はユーザーからトークン発行用のIdentityを組み立てる。
func IdentityOf(u *User) Identity {
	return Identity{
		SubjectID: u.ID,
		Email:     u.Email,
		Name:      u.Name,
	}
}

// UserStats はダッシュボード用の集計値。
type UserStats struct {
	TotalPosts    int `json:"totalPosts"`
	Drafts        int `json:"drafts"`
	Published     int `json:"published"`
	TotalLikes    int `json:"totalLikes"`
	TotalComments int `json:"totalComments"`
	// 閲覧数は計測していないため常に0。
	TotalViews int `json:"totalViews"`
}

// ProfileUpdate はプロフィール更新の入力。nilのフィールドは変更しない。
type ProfileUpdate struct {
	Name  *string
	Email *string
}
