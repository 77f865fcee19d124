// Package memrepo はrepositoryパッケージのインターフェースをメモリ上で実装する。
// サービス層・HTTP層のテストでPostgreSQLの代わりに使う。
// 外部キーのCASCADE削除と、読み出し時の著者情報・件数の埋め込みを再現する。
package memrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/writewise/internal/model"
	"github.com/hitoshi/writewise/internal/repository"
)

type likeKey struct {
	userID string
	postID string
}

// Store は全リポジトリが共有するデータ。
type Store struct {
	mu       sync.RWMutex
	users    map[string]*model.User
	posts    map[string]*model.Post
	comments map[string]*model.Comment
	likes    map[likeKey]time.Time
}

// New は空のStoreを生成する。
func New() *Store {
	return &Store{
		users:    make(map[string]*model.User),
		posts:    make(map[string]*model.Post),
		comments: make(map[string]*model.Comment),
		likes:    make(map[likeKey]time.Time),
	}
}

// Users はUserRepositoryを返す。
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Posts はPostRepositoryを返す。
func (s *Store) Posts() *PostRepo { return &PostRepo{s: s} }

// Comments はCommentRepositoryを返す。
func (s *Store) Comments() *CommentRepo { return &CommentRepo{s: s} }

// Likes はLikeRepositoryを返す。
func (s *Store) Likes() *LikeRepo { return &LikeRepo{s: s} }

// Stats はStatsRepositoryを返す。
func (s *Store) Stats() *StatsRepo { return &StatsRepo{s: s} }

// compile-time interface check
var (
	_ repository.UserRepository    = (*UserRepo)(nil)
	_ repository.PostRepository    = (*PostRepo)(nil)
	_ repository.CommentRepository = (*CommentRepo)(nil)
	_ repository.LikeRepository    = (*LikeRepo)(nil)
	_ repository.StatsRepository   = (*StatsRepo)(nil)
)

// --- users ---

// UserRepo はメモリ上のUserRepository。
type UserRepo struct{ s *Store }

func (r *UserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u := r.s.userByEmailLocked(email); u != nil {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *UserRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.userByEmailLocked(user.Email) != nil {
		return repository.ErrDuplicateEmail
	}
	copied := *user
	r.s.users[user.ID] = &copied
	return nil
}

func (r *UserRepo) UpdateProfile(_ context.Context, id string, update model.ProfileUpdate) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	if update.Email != nil {
		if other := r.s.userByEmailLocked(*update.Email); other != nil && other.ID != id {
			return nil, repository.ErrDuplicateEmail
		}
		u.Email = *update.Email
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	u.UpdatedAt = time.Now()
	copied := *u
	return &copied, nil
}

func (r *UserRepo) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return fmt.Errorf("user not found: %s", id)
	}
	delete(r.s.users, id)
	for postID, p := range r.s.posts {
		if p.AuthorID == id {
			r.s.deletePostLocked(postID)
		}
	}
	for commentID, c := range r.s.comments {
		if c.AuthorID == id {
			delete(r.s.comments, commentID)
		}
	}
	for key := range r.s.likes {
		if key.userID == id {
			delete(r.s.likes, key)
		}
	}
	return nil
}

func (s *Store) userByEmailLocked(email string) *model.User {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

// --- posts ---

// PostRepo はメモリ上のPostRepository。
type PostRepo struct{ s *Store }

func (r *PostRepo) List(_ context.Context, query model.PostQuery) ([]*model.Post, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.s.filterPostsLocked(func(p *model.Post) bool {
		if p.Status != model.PostStatusPublished {
			return false
		}
		if query.Search != "" && !containsFold(p.Title, query.Search) && !containsFold(p.Content, query.Search) {
			return false
		}
		if query.Tag != "" && !hasTag(p.Tags, query.Tag) {
			return false
		}
		return true
	})
	sortByCreated(matched, query.Sort == model.PostSortDateAsc)

	total := len(matched)
	start := min(query.Offset(), total)
	end := total
	if query.Limit > 0 {
		end = min(start+query.Limit, total)
	}
	return matched[start:end], total, nil
}

func (r *PostRepo) Trending(_ context.Context, limit int) ([]*model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.s.filterPostsLocked(func(p *model.Post) bool {
		return p.Status == model.PostStatusPublished
	})
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Count.Likes != matched[j].Count.Likes {
			return matched[i].Count.Likes > matched[j].Count.Likes
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *PostRepo) Search(_ context.Context, q string) ([]*model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.s.filterPostsLocked(func(p *model.Post) bool {
		return p.Status == model.PostStatusPublished &&
			(containsFold(p.Title, q) || containsFold(p.Content, q) || hasTag(p.Tags, q))
	})
	sortByCreated(matched, false)
	return matched, nil
}

func (r *PostRepo) ListByAuthor(_ context.Context, authorID string) ([]*model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.s.filterPostsLocked(func(p *model.Post) bool {
		return p.AuthorID == authorID
	})
	sortByCreated(matched, false)
	return matched, nil
}

func (r *PostRepo) FindByID(_ context.Context, id string) (*model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, nil
	}
	return r.s.hydratePostLocked(p), nil
}

func (r *PostRepo) Create(_ context.Context, post *model.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[post.AuthorID]; !ok {
		return fmt.Errorf("failed to insert post: author %s does not exist", post.AuthorID)
	}
	copied := *post
	copied.Tags = append([]string{}, post.Tags...)
	r.s.posts[post.ID] = &copied
	return nil
}

func (r *PostRepo) Update(_ context.Context, id string, update model.PostUpdate) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return false, nil
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Content != nil {
		p.Content = *update.Content
	}
	if update.Summary != nil {
		p.Summary = nilIfEmpty(*update.Summary)
	}
	if update.CoverImage != nil {
		p.CoverImage = nilIfEmpty(*update.CoverImage)
	}
	if update.Tags != nil {
		p.Tags = append([]string{}, (*update.Tags)...)
	}
	if update.Status != nil {
		p.Status = *update.Status
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *PostRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return fmt.Errorf("post not found: %s", id)
	}
	r.s.deletePostLocked(id)
	return nil
}

func (s *Store) deletePostLocked(id string) {
	delete(s.posts, id)
	for commentID, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, commentID)
		}
	}
	for key := range s.likes {
		if key.postID == id {
			delete(s.likes, key)
		}
	}
}

func (s *Store) filterPostsLocked(keep func(p *model.Post) bool) []*model.Post {
	out := []*model.Post{}
	for _, p := range s.posts {
		hydrated := s.hydratePostLocked(p)
		if keep(hydrated) {
			out = append(out, hydrated)
		}
	}
	return out
}

// hydratePostLocked は著者情報と件数を埋め込んだコピーを返す。
func (s *Store) hydratePostLocked(p *model.Post) *model.Post {
	copied := *p
	copied.Tags = append([]string{}, p.Tags...)
	if u, ok := s.users[p.AuthorID]; ok {
		copied.Author = authorOf(u)
	}
	for key := range s.likes {
		if key.postID == p.ID {
			copied.Count.Likes++
		}
	}
	for _, c := range s.comments {
		if c.PostID == p.ID {
			copied.Count.Comments++
		}
	}
	return &copied
}

// --- comments ---

// CommentRepo はメモリ上のCommentRepository。
type CommentRepo struct{ s *Store }

func (r *CommentRepo) ListByPost(_ context.Context, postID string) ([]*model.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.filterCommentsLocked(func(c *model.Comment) bool { return c.PostID == postID }, false), nil
}

func (r *CommentRepo) ListByAuthor(_ context.Context, authorID string) ([]*model.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.filterCommentsLocked(func(c *model.Comment) bool { return c.AuthorID == authorID }, true), nil
}

func (r *CommentRepo) FindByID(_ context.Context, id string) (*model.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, nil
	}
	return r.s.hydrateCommentLocked(c, false), nil
}

func (r *CommentRepo) Create(_ context.Context, comment *model.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[comment.PostID]; !ok {
		return fmt.Errorf("failed to insert comment: post %s does not exist", comment.PostID)
	}
	copied := *comment
	copied.Author = nil
	copied.Post = nil
	r.s.comments[comment.ID] = &copied
	return nil
}

func (r *CommentRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return fmt.Errorf("comment not found: %s", id)
	}
	delete(r.s.comments, id)
	return nil
}

func (s *Store) filterCommentsLocked(keep func(c *model.Comment) bool, withPost bool) []*model.Comment {
	out := []*model.Comment{}
	for _, c := range s.comments {
		if keep(c) {
			out = append(out, s.hydrateCommentLocked(c, withPost))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) hydrateCommentLocked(c *model.Comment, withPost bool) *model.Comment {
	copied := *c
	if u, ok := s.users[c.AuthorID]; ok {
		copied.Author = authorOf(u)
	}
	if withPost {
		if p, ok := s.posts[c.PostID]; ok {
			copied.Post = &model.PostRef{ID: p.ID, Title: p.Title}
		}
	}
	return &copied
}

// --- likes ---

// LikeRepo はメモリ上のLikeRepository。
type LikeRepo struct{ s *Store }

func (r *LikeRepo) Toggle(_ context.Context, userID, postID string) (bool, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[postID]; !ok {
		return false, 0, fmt.Errorf("failed to insert like: post %s does not exist", postID)
	}

	key := likeKey{userID: userID, postID: postID}
	liked := false
	if _, ok := r.s.likes[key]; ok {
		delete(r.s.likes, key)
	} else {
		r.s.likes[key] = time.Now()
		liked = true
	}

	count := 0
	for k := range r.s.likes {
		if k.postID == postID {
			count++
		}
	}
	return liked, count, nil
}

func (r *LikeRepo) Exists(_ context.Context, userID, postID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.likes[likeKey{userID: userID, postID: postID}]
	return ok, nil
}

func (r *LikeRepo) ListLikedPosts(_ context.Context, userID string) ([]*model.LikedPost, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.LikedPost{}
	for key, likedAt := range r.s.likes {
		if key.userID != userID {
			continue
		}
		if p, ok := r.s.posts[key.postID]; ok {
			out = append(out, &model.LikedPost{Post: r.s.hydratePostLocked(p), LikedAt: likedAt})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LikedAt.After(out[j].LikedAt)
	})
	return out, nil
}

// --- stats ---

// StatsRepo はメモリ上のStatsRepository。
type StatsRepo struct{ s *Store }

func (r *StatsRepo) UserStats(_ context.Context, userID string) (*model.UserStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := &model.UserStats{}
	owned := make(map[string]struct{})
	for _, p := range r.s.posts {
		if p.AuthorID != userID {
			continue
		}
		owned[p.ID] = struct{}{}
		stats.TotalPosts++
		switch p.Status {
		case model.PostStatusDraft:
			stats.Drafts++
		case model.PostStatusPublished:
			stats.Published++
		}
	}
	for key := range r.s.likes {
		if _, ok := owned[key.postID]; ok {
			stats.TotalLikes++
		}
	}
	for _, c := range r.s.comments {
		if _, ok := owned[c.PostID]; ok {
			stats.TotalComments++
		}
	}
	return stats, nil
}

// --- helpers ---

// SeedUser はテスト用にユーザーを直接登録し、そのコピーを返す。
// IDと作成日時が空の場合は採番する。
func (s *Store) SeedUser(u model.User) *model.User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
		u.UpdatedAt = u.CreatedAt
	}
	if u.Provider == "" {
		u.Provider = model.ProviderLocal
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := u
	s.users[u.ID] = &stored
	return &u
}

func authorOf(u *model.User) *model.Author {
	return &model.Author{ID: u.ID, Name: u.Name, Email: u.Email}
}

func sortByCreated(posts []*model.Post, ascending bool) {
	sort.SliceStable(posts, func(i, j int) bool {
		if ascending {
			return posts[i].CreatedAt.Before(posts[j].CreatedAt)
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
