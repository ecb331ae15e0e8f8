package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/strivelab/strive-blog/internal/apperror"
	"github.com/strivelab/strive-blog/internal/metrics"
	"github.com/strivelab/strive-blog/internal/model"
	"github.com/strivelab/strive-blog/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakePostRepo is an in-memory implementation of repository.PostRepository.
type fakePostRepo struct {
	posts map[string]*model.Post
	order []string
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.Post)}
}

func (f *fakePostRepo) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	copied := *post
	f.posts[post.ID] = &copied
	f.order = append(f.order, post.ID)
	return nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id string) (*model.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	copied := *p
	return &copied, nil
}

func (f *fakePostRepo) List(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	out := []model.Post{}
	for i, id := range f.order {
		if i < opts.Offset {
			continue
		}
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
		out = append(out, *f.posts[id])
	}
	return out, nil
}

func (f *fakePostRepo) Count(ctx context.Context) (int, error) {
	return len(f.order), nil
}

func (f *fakePostRepo) Update(ctx context.Context, post *model.Post) error {
	if _, ok := f.posts[post.ID]; !ok {
		return apperror.NotFound("post", post.ID)
	}
	copied := *post
	f.posts[post.ID] = &copied
	return nil
}

func (f *fakePostRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(f.posts, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakePostRepo) DeleteAll(ctx context.Context) error {
	f.posts = make(map[string]*model.Post)
	f.order = nil
	return nil
}

// newTestPostService wires a PostService with fakes, and returns the
// author every test post can belong to.
func newTestPostService(t *testing.T, mail *fakeMailer) (*PostService, *fakeAuthorRepo, *fakePostRepo, *model.Author) {
	t.Helper()

	authors := newFakeAuthorRepo()
	posts := newFakePostRepo()

	author := &model.Author{Email: "writer@example.com", Name: "Wri", Surname: "Ter"}
	if err := authors.Create(context.Background(), author); err != nil {
		t.Fatalf("creating test author: %v", err)
	}

	svc := NewPostService(posts, authors, nil, mail, metrics.NopRecorder{}, testLogger())
	return svc, authors, posts, author
}

// =========================================================================
// List / PAGINATION TESTS
// =========================================================================

func TestPostList_PaginationMath(t *testing.T) {
	svc, _, _, author := newTestPostService(t, &fakeMailer{})

	// 15 posts, limit 10 → 2 pages: 10 on page 1, 5 on page 2
	for i := 0; i < 15; i++ {
		_, err := svc.Create(context.Background(), author.ID, PostInput{
			Category: "tech",
			Title:    fmt.Sprintf("post %02d", i),
			ReadTime: model.ReadTime{Value: 1, Unit: "minutes"},
			Content:  "...",
		})
		if err != nil {
			t.Fatalf("Create() %d: %v", i, err)
		}
	}

	page2, err := svc.List(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if page2.TotalPosts != 15 {
		t.Errorf("TotalPosts = %d, want 15", page2.TotalPosts)
	}
	if page2.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", page2.TotalPages)
	}
	if page2.CurrentPage != 2 {
		t.Errorf("CurrentPage = %d, want 2", page2.CurrentPage)
	}
	if len(page2.Posts) != 5 {
		t.Errorf("len(Posts) = %d, want 5 on the last page", len(page2.Posts))
	}
	if page2.Posts[0].Title != "post 10" {
		t.Errorf("first post on page 2 = %q, want %q", page2.Posts[0].Title, "post 10")
	}
}

func TestPostList_Defaults(t *testing.T) {
	svc, _, _, _ := newTestPostService(t, &fakeMailer{})

	// Garbage window values fall back to page 1, limit 10
	page, err := svc.List(context.Background(), 0, -3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.CurrentPage != 1 {
		t.Errorf("CurrentPage = %d, want 1", page.CurrentPage)
	}
	if page.TotalPosts != 0 || page.TotalPages != 0 {
		t.Errorf("empty table: TotalPosts=%d TotalPages=%d, want 0/0", page.TotalPosts, page.TotalPages)
	}
	if page.Posts == nil {
		t.Error("Posts should be an empty slice, not nil")
	}
}

// =========================================================================
// Create TESTS
// =========================================================================

func TestPostCreate(t *testing.T) {
	mail := &fakeMailer{}
	svc, _, _, author := newTestPostService(t, mail)

	post, err := svc.Create(context.Background(), author.ID, PostInput{
		Category: "go",
		Title:    "Fresh Post",
		ReadTime: model.ReadTime{Value: 4, Unit: "minutes"},
		Content:  "body",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if post.ID == "" {
		t.Error("Create() did not assign an ID")
	}
	if post.AuthorID != author.ID {
		t.Errorf("AuthorID = %q, want %q", post.AuthorID, author.ID)
	}
	if post.Author == nil || post.Author.Name != "Wri" {
		t.Errorf("Author projection = %+v, want populated from owner", post.Author)
	}
	if len(mail.published) != 1 || mail.published[0] != "Fresh Post" {
		t.Errorf("publish emails = %v, want one for %q", mail.published, "Fresh Post")
	}
}

func TestPostCreate_UnknownAuthor(t *testing.T) {
	svc, _, _, _ := newTestPostService(t, &fakeMailer{})

	_, err := svc.Create(context.Background(), "no-such-author", PostInput{Title: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Create() error = %v, want ErrNotFound", err)
	}
}

func TestPostCreate_EmailFailureIsSwallowed(t *testing.T) {
	mail := &fakeMailer{err: errors.New("smtp down")}
	svc, _, _, author := newTestPostService(t, mail)

	post, err := svc.Create(context.Background(), author.ID, PostInput{Title: "Still Published"})
	if err != nil {
		t.Fatalf("Create() error = %v, want success despite mail failure", err)
	}
	if post.ID == "" {
		t.Error("Create() did not assign an ID")
	}
}

// =========================================================================
// OWNERSHIP TESTS
// =========================================================================

func TestPostUpdateOwn_Owner(t *testing.T) {
	svc, _, _, author := newTestPostService(t, &fakeMailer{})

	post, err := svc.Create(context.Background(), author.ID, PostInput{Title: "Mine"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.UpdateOwn(context.Background(), author, post.ID, PostInput{Title: "Mine, Edited"})
	if err != nil {
		t.Fatalf("UpdateOwn() error = %v", err)
	}
	if updated.Title != "Mine, Edited" {
		t.Errorf("Title = %q, want %q", updated.Title, "Mine, Edited")
	}
}

func TestPostUpdateOwn_NotOwner(t *testing.T) {
	svc, authors, _, author := newTestPostService(t, &fakeMailer{})

	post, err := svc.Create(context.Background(), author.ID, PostInput{Title: "Theirs"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	intruder := &model.Author{Email: "intruder@example.com", Name: "In", Surname: "Truder"}
	if err := authors.Create(context.Background(), intruder); err != nil {
		t.Fatalf("creating intruder: %v", err)
	}

	_, err = svc.UpdateOwn(context.Background(), intruder, post.ID, PostInput{Title: "Hijacked"})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("UpdateOwn() error = %v, want ErrForbidden", err)
	}

	// The post is untouched
	unchanged, err := svc.GetByID(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if unchanged.Title != "Theirs" {
		t.Errorf("Title = %q, post was modified by a non-owner", unchanged.Title)
	}
}

// Existence is checked before ownership: a missing post is 404 even for a
// caller who owns nothing.
func TestPostDeleteOwn_MissingPost(t *testing.T) {
	svc, _, _, author := newTestPostService(t, &fakeMailer{})

	err := svc.DeleteOwn(context.Background(), author, "no-such-post")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteOwn() error = %v, want ErrNotFound", err)
	}
}

func TestPostDeleteOwn_NotOwner(t *testing.T) {
	svc, authors, _, author := newTestPostService(t, &fakeMailer{})

	post, err := svc.Create(context.Background(), author.ID, PostInput{Title: "Protected"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	intruder := &model.Author{Email: "other@example.com", Name: "Other"}
	if err := authors.Create(context.Background(), intruder); err != nil {
		t.Fatalf("creating intruder: %v", err)
	}

	err = svc.DeleteOwn(context.Background(), intruder, post.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("DeleteOwn() error = %v, want ErrForbidden", err)
	}
}

func TestPostDeleteOwn_Owner(t *testing.T) {
	svc, _, _, author := newTestPostService(t, &fakeMailer{})

	post, err := svc.Create(context.Background(), author.ID, PostInput{Title: "Ephemeral"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.DeleteOwn(context.Background(), author, post.ID); err != nil {
		t.Fatalf("DeleteOwn() error = %v", err)
	}
	_, err = svc.GetByID(context.Background(), post.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// PARTIAL UPDATE TESTS
// =========================================================================

func TestPostUpdate_PartialBodyKeepsFields(t *testing.T) {
	svc, _, _, author := newTestPostService(t, &fakeMailer{})

	post, err := svc.Create(context.Background(), author.ID, PostInput{
		Category: "tech",
		Title:    "Original",
		Content:  "original body",
		ReadTime: model.ReadTime{Value: 7, Unit: "minutes"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(context.Background(), post.ID, PostInput{Title: "Renamed"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Title != "Renamed" {
		t.Errorf("Title = %q, want %q", updated.Title, "Renamed")
	}
	if updated.Category != "tech" || updated.Content != "original body" {
		t.Errorf("partial update blanked other fields: %+v", updated)
	}
	if updated.ReadTime.Value != 7 {
		t.Errorf("ReadTime.Value = %d, want 7 preserved", updated.ReadTime.Value)
	}
}
