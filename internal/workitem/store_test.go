package workitem

import (
	"strings"
	"testing"

	"github.com/hitoshi/devflow/internal/model"
	"github.com/hitoshi/devflow/internal/storage"
)

// --- モック定義 ---

type mockSanitizer struct {
	sanitizeFn func(raw string) string
}

func (m *mockSanitizer) Sanitize(raw string) string {
	if m.sanitizeFn != nil {
		return m.sanitizeFn(raw)
	}
	return raw
}

var _ Sanitizer = (*mockSanitizer)(nil)

// failingStore はすべての操作が失敗するストレージ。
type failingStore struct{}

func (f *failingStore) Get(key string) ([]byte, error)     { return nil, errStorage }
func (f *failingStore) Set(key string, value []byte) error { return errStorage }
func (f *failingStore) Delete(key string) error            { return errStorage }

var _ storage.Store = (*failingStore)(nil)

var errStorage = &storageError{}

type storageError struct{}

func (e *storageError) Error() string { return "storage unavailable" }

func newTestStore() *Store {
	return NewStore(storage.NewMemoryStore(), nil)
}

func validInput(title string) CreateInput {
	return CreateInput{
		Title:       title,
		Type:        model.WorkTypeFeatureRequest,
		Description: "説明",
		Repo:        "hitoshi/devflow",
	}
}

// --- Create ---

func TestCreate_StartsAsDraftWithEqualTimestamps(t *testing.T) {
	store := newTestStore()

	item, err := store.Create(validInput("ログイン画面の改善"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if item.WorkflowState != model.WorkflowStateDraft {
		t.Errorf("WorkflowState = %q, want %q", item.WorkflowState, model.WorkflowStateDraft)
	}
	if !item.CreatedAt.Equal(item.UpdatedAt) {
		t.Errorf("CreatedAt = %v, UpdatedAt = %v, want equal", item.CreatedAt, item.UpdatedAt)
	}
	if item.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestCreate_GeneratesUniqueIDs(t *testing.T) {
	store := newTestStore()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		item, err := store.Create(validInput("item"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.HasPrefix(item.ID, "bow_") {
			t.Fatalf("ID = %q, want prefix %q", item.ID, "bow_")
		}
		if seen[item.ID] {
			t.Fatalf("duplicate ID generated: %q", item.ID)
		}
		seen[item.ID] = true
	}
}

func TestCreate_InvalidWorkType_ReturnsError(t *testing.T) {
	store := newTestStore()

	input := validInput("invalid")
	input.Type = model.WorkType("Something Else")

	_, err := store.Create(input)
	if err == nil {
		t.Fatal("expected error for invalid work type, got nil")
	}

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidWorkType {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidWorkType)
	}

	if got := len(store.List()); got != 0 {
		t.Errorf("List() length = %d, want 0 (no side effects)", got)
	}
}

func TestCreate_AssignsIDsToContextReferences(t *testing.T) {
	store := newTestStore()

	input := validInput("with refs")
	input.ContextReferences = []model.ContextReference{
		{Type: model.ContextReferencePath, Value: "internal/app/app.go", Label: "app"},
		{ID: "existing-id", Type: model.ContextReferenceMarkdown, Value: "# memo", Label: "memo"},
	}

	item, err := store.Create(input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(item.ContextReferences) != 2 {
		t.Fatalf("ContextReferences length = %d, want 2", len(item.ContextReferences))
	}
	if item.ContextReferences[0].ID == "" {
		t.Error("first reference should receive a generated ID")
	}
	if item.ContextReferences[1].ID != "existing-id" {
		t.Errorf("second reference ID = %q, want %q", item.ContextReferences[1].ID, "existing-id")
	}
}

func TestCreate_DuplicateReferenceIDs_ReassignedUnique(t *testing.T) {
	store := newTestStore()

	input := validInput("with duplicate reference ids")
	input.ContextReferences = []model.ContextReference{
		{ID: "ref-1", Type: model.ContextReferencePath, Value: "internal/app/app.go", Label: "app"},
		{ID: "ref-1", Type: model.ContextReferenceMarkdown, Value: "# memo", Label: "memo"},
		{ID: "ref-2", Type: model.ContextReferencePath, Value: "cmd/devflowd/main.go", Label: "main"},
	}

	item, err := store.Create(input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(item.ContextReferences) != 3 {
		t.Fatalf("ContextReferences length = %d, want 3", len(item.ContextReferences))
	}

	// 先勝ちで元のIDを保持し、重複した後続には新しいIDが割り当てられる
	if item.ContextReferences[0].ID != "ref-1" {
		t.Errorf("first reference ID = %q, want %q", item.ContextReferences[0].ID, "ref-1")
	}
	if item.ContextReferences[1].ID == "ref-1" || item.ContextReferences[1].ID == "" {
		t.Errorf("duplicate reference ID = %q, want a fresh unique ID", item.ContextReferences[1].ID)
	}
	if item.ContextReferences[2].ID != "ref-2" {
		t.Errorf("third reference ID = %q, want %q", item.ContextReferences[2].ID, "ref-2")
	}

	// リスト内でIDが一意であること
	seen := map[string]bool{}
	for _, ref := range item.ContextReferences {
		if seen[ref.ID] {
			t.Errorf("context reference ID %q appears more than once", ref.ID)
		}
		seen[ref.ID] = true
	}
}

func TestCreate_SanitizesMarkdownReferences(t *testing.T) {
	sanitizer := &mockSanitizer{
		sanitizeFn: func(raw string) string {
			return strings.ReplaceAll(raw, "<script>alert(1)</script>", "")
		},
	}
	store := NewStore(storage.NewMemoryStore(), sanitizer)

	input := validInput("with markdown")
	input.ContextReferences = []model.ContextReference{
		{Type: model.ContextReferenceMarkdown, Value: "# memo<script>alert(1)</script>", Label: "memo"},
		{Type: model.ContextReferencePath, Value: "cmd/<script>alert(1)</script>", Label: "path"},
	}

	item, err := store.Create(input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if item.ContextReferences[0].Value != "# memo" {
		t.Errorf("markdown reference = %q, want sanitized %q", item.ContextReferences[0].Value, "# memo")
	}
	// パス参照はサニタイズ対象外
	if item.ContextReferences[1].Value != "cmd/<script>alert(1)</script>" {
		t.Errorf("path reference = %q, should not be sanitized", item.ContextReferences[1].Value)
	}
}

// --- List / GetByID ---

func TestList_EmptyStorage_ReturnsEmptySlice(t *testing.T) {
	store := newTestStore()

	items := store.List()
	if items == nil {
		t.Fatal("List() should return an empty slice, not nil")
	}
	if len(items) != 0 {
		t.Errorf("List() length = %d, want 0", len(items))
	}
}

func TestList_ReturnsItemsInCreationOrder(t *testing.T) {
	store := newTestStore()

	first, _ := store.Create(validInput("first"))
	second, _ := store.Create(validInput("second"))
	third, _ := store.Create(validInput("third"))

	items := store.List()
	if len(items) != 3 {
		t.Fatalf("List() length = %d, want 3", len(items))
	}
	wantOrder := []string{first.ID, second.ID, third.ID}
	for i, want := range wantOrder {
		if items[i].ID != want {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, want)
		}
	}
}

func TestList_CorruptCollection_ReturnsEmptySlice(t *testing.T) {
	st := storage.NewMemoryStore()
	if err := st.Set(collectionKey, []byte("{not valid json")); err != nil {
		t.Fatalf("failed to seed corrupt data: %v", err)
	}
	store := NewStore(st, nil)

	items := store.List()
	if len(items) != 0 {
		t.Errorf("List() length = %d, want 0 for corrupt collection", len(items))
	}

	// 破損状態からの再作成が可能であること
	if _, err := store.Create(validInput("recovered")); err != nil {
		t.Fatalf("expected recovery after corruption, got %v", err)
	}
	if got := len(store.List()); got != 1 {
		t.Errorf("List() length = %d, want 1 after recovery", got)
	}
}

func TestList_StorageFailure_ReturnsEmptySlice(t *testing.T) {
	store := NewStore(&failingStore{}, nil)

	items := store.List()
	if len(items) != 0 {
		t.Errorf("List() length = %d, want 0 on storage failure", len(items))
	}
}

func TestListByState_FiltersDraftItems(t *testing.T) {
	store := newTestStore()

	draft, _ := store.Create(validInput("draft"))
	advanced, _ := store.Create(validInput("advanced"))
	store.Transition(advanced.ID, model.WorkflowStateReady)

	drafts := store.ListByState(model.WorkflowStateDraft)
	if len(drafts) != 1 {
		t.Fatalf("ListByState(Draft) length = %d, want 1", len(drafts))
	}
	if drafts[0].ID != draft.ID {
		t.Errorf("drafts[0].ID = %q, want %q", drafts[0].ID, draft.ID)
	}
}

func TestGetByID_ReturnsCreatedItem(t *testing.T) {
	store := newTestStore()

	created, _ := store.Create(validInput("findable"))

	got := store.GetByID(created.ID)
	if got == nil {
		t.Fatal("GetByID returned nil for existing item")
	}
	if got.Title != "findable" {
		t.Errorf("Title = %q, want %q", got.Title, "findable")
	}
	if got.WorkflowState != model.WorkflowStateDraft {
		t.Errorf("WorkflowState = %q, want %q", got.WorkflowState, model.WorkflowStateDraft)
	}
}

func TestGetByID_UnknownID_ReturnsNil(t *testing.T) {
	store := newTestStore()
	store.Create(validInput("other"))

	if got := store.GetByID("bow_0_ffffffffffff"); got != nil {
		t.Errorf("GetByID(unknown) = %+v, want nil", got)
	}
}

// --- Update ---

func TestUpdate_MergesPartialInput(t *testing.T) {
	store := newTestStore()

	created, _ := store.Create(validInput("original title"))

	newTitle := "updated title"
	newRepo := "hitoshi/other"
	updated := store.Update(created.ID, UpdateInput{
		Title: &newTitle,
		Repo:  &newRepo,
	})
	if updated == nil {
		t.Fatal("Update returned nil for existing item")
	}

	if updated.Title != "updated title" {
		t.Errorf("Title = %q, want %q", updated.Title, "updated title")
	}
	if updated.Repo != "hitoshi/other" {
		t.Errorf("Repo = %q, want %q", updated.Repo, "hitoshi/other")
	}
	// 未指定フィールドは変更されない
	if updated.Description != "説明" {
		t.Errorf("Description = %q, want unchanged %q", updated.Description, "説明")
	}
	if updated.Type != model.WorkTypeFeatureRequest {
		t.Errorf("Type = %q, want unchanged %q", updated.Type, model.WorkTypeFeatureRequest)
	}
}

func TestUpdate_PreservesIDAndCreatedAt(t *testing.T) {
	store := newTestStore()

	created, _ := store.Create(validInput("immutable fields"))

	newTitle := "renamed"
	updated := store.Update(created.ID, UpdateInput{Title: &newTitle})
	if updated == nil {
		t.Fatal("Update returned nil for existing item")
	}

	if updated.ID != created.ID {
		t.Errorf("ID = %q, want %q", updated.ID, created.ID)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", updated.CreatedAt, created.CreatedAt)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, should not be before %v", updated.UpdatedAt, created.UpdatedAt)
	}
}

func TestUpdate_UnknownID_ReturnsNilWithoutSideEffects(t *testing.T) {
	store := newTestStore()
	created, _ := store.Create(validInput("untouched"))

	newTitle := "should not apply"
	if got := store.Update("bow_0_ffffffffffff", UpdateInput{Title: &newTitle}); got != nil {
		t.Errorf("Update(unknown) = %+v, want nil", got)
	}

	after := store.GetByID(created.ID)
	if after.Title != "untouched" {
		t.Errorf("Title = %q, want %q (no side effects)", after.Title, "untouched")
	}
}

func TestUpdate_InvalidWorkflowState_IsIgnored(t *testing.T) {
	store := newTestStore()
	created, _ := store.Create(validInput("state guard"))

	bad := model.WorkflowState("In Review")
	newTitle := "still applied"
	updated := store.Update(created.ID, UpdateInput{
		Title:         &newTitle,
		WorkflowState: &bad,
	})
	if updated == nil {
		t.Fatal("Update returned nil for existing item")
	}

	if updated.WorkflowState != model.WorkflowStateDraft {
		t.Errorf("WorkflowState = %q, want unchanged %q", updated.WorkflowState, model.WorkflowStateDraft)
	}
	// 他の有効なフィールドは適用される
	if updated.Title != "still applied" {
		t.Errorf("Title = %q, want %q", updated.Title, "still applied")
	}
}

func TestUpdate_SanitizesGeneratedSpec(t *testing.T) {
	sanitizer := &mockSanitizer{
		sanitizeFn: func(raw string) string {
			return strings.ReplaceAll(raw, "<script>", "")
		},
	}
	store := NewStore(storage.NewMemoryStore(), sanitizer)
	created, _ := store.Create(validInput("spec holder"))

	spec := "# 仕様<script>"
	updated := store.Update(created.ID, UpdateInput{GeneratedSpec: &spec})
	if updated == nil {
		t.Fatal("Update returned nil for existing item")
	}

	if updated.GeneratedSpec != "# 仕様" {
		t.Errorf("GeneratedSpec = %q, want sanitized %q", updated.GeneratedSpec, "# 仕様")
	}
}

// --- Transition ---

func TestTransition_AllowsAnyDirection(t *testing.T) {
	store := newTestStore()
	created, _ := store.Create(validInput("free transitions"))

	// Draft → Ready（中間状態のスキップ）
	got := store.Transition(created.ID, model.WorkflowStateReady)
	if got == nil || got.WorkflowState != model.WorkflowStateReady {
		t.Fatalf("Transition to Ready = %+v, want Ready", got)
	}

	// Ready → Draft（後退）
	got = store.Transition(created.ID, model.WorkflowStateDraft)
	if got == nil || got.WorkflowState != model.WorkflowStateDraft {
		t.Fatalf("Transition back to Draft = %+v, want Draft", got)
	}

	// Draft → Spec Generated
	got = store.Transition(created.ID, model.WorkflowStateSpecGenerated)
	if got == nil || got.WorkflowState != model.WorkflowStateSpecGenerated {
		t.Fatalf("Transition to Spec Generated = %+v, want Spec Generated", got)
	}
}

func TestTransition_RefreshesUpdatedAt(t *testing.T) {
	store := newTestStore()
	created, _ := store.Create(validInput("timestamp"))

	got := store.Transition(created.ID, model.WorkflowStateSpecGenerated)
	if got == nil {
		t.Fatal("Transition returned nil for existing item")
	}

	if got.UpdatedAt.Before(created.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, should not be before %v", got.UpdatedAt, created.UpdatedAt)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want unchanged %v", got.CreatedAt, created.CreatedAt)
	}
}

func TestTransition_InvalidState_ReturnsNilWithoutSideEffects(t *testing.T) {
	store := newTestStore()
	created, _ := store.Create(validInput("guarded"))

	if got := store.Transition(created.ID, model.WorkflowState("Done")); got != nil {
		t.Errorf("Transition(invalid state) = %+v, want nil", got)
	}

	after := store.GetByID(created.ID)
	if after.WorkflowState != model.WorkflowStateDraft {
		t.Errorf("WorkflowState = %q, want unchanged %q", after.WorkflowState, model.WorkflowStateDraft)
	}
}

// --- Delete ---

func TestDelete_RemovesOnlyTargetItem(t *testing.T) {
	store := newTestStore()

	keep, _ := store.Create(validInput("keep"))
	remove, _ := store.Create(validInput("remove"))

	if !store.Delete(remove.ID) {
		t.Fatal("Delete returned false for existing item")
	}

	if store.GetByID(remove.ID) != nil {
		t.Error("deleted item should not be retrievable")
	}
	if store.GetByID(keep.ID) == nil {
		t.Error("unrelated item should survive deletion")
	}
}

func TestDelete_UnknownID_ReturnsFalse(t *testing.T) {
	store := newTestStore()
	store.Create(validInput("survivor"))

	if store.Delete("bow_0_ffffffffffff") {
		t.Error("Delete(unknown) = true, want false")
	}
	if got := len(store.List()); got != 1 {
		t.Errorf("List() length = %d, want 1", got)
	}
}

// --- 永続化 ---

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := t.TempDir() + "/state.json"

	fs, err := storage.NewFileStore(path)
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	store := NewStore(fs, nil)
	created, _ := store.Create(validInput("durable"))
	store.Transition(created.ID, model.WorkflowStateSpecGenerated)

	// プロセス再起動を模して別のストアインスタンスで開き直す
	fs2, err := storage.NewFileStore(path)
	if err != nil {
		t.Fatalf("failed to reopen file store: %v", err)
	}
	reopened := NewStore(fs2, nil)

	got := reopened.GetByID(created.ID)
	if got == nil {
		t.Fatal("item should survive reopen")
	}
	if got.WorkflowState != model.WorkflowStateSpecGenerated {
		t.Errorf("WorkflowState = %q, want %q", got.WorkflowState, model.WorkflowStateSpecGenerated)
	}
}
