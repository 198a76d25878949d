// Package workitem は作業アイテムのCRUDとワークフロー遷移を提供する。
// コレクション全体をクライアントローカルなキーバリュー基盤に永続化し、
// すべての変更操作はコレクション全体のread-modify-writeで行う。
package workitem

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/devflow/internal/model"
	"github.com/hitoshi/devflow/internal/storage"
)

// collectionKey は作業アイテムコレクションの永続化キー。
const collectionKey = "devflow_work_items"

// Sanitizer はMarkdown参照や生成仕様書に含まれるHTMLのサニタイズ機能。
// security.ContentSanitizerServiceの部分集合として定義する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Store は作業アイテムのストア。
// 1プロセスにつき1つ構築し、永続化基盤とサニタイザを注入する。
type Store struct {
	storage   storage.Store
	sanitizer Sanitizer
}

// NewStore はStoreを生成する。sanitizerはnil可（サニタイズを行わない）。
func NewStore(st storage.Store, sanitizer Sanitizer) *Store {
	return &Store{
		storage:   st,
		sanitizer: sanitizer,
	}
}

// CreateInput は作業アイテム作成の入力。
type CreateInput struct {
	Title             string
	Type              model.WorkType
	TypeOther         string
	Description       string
	Repo              string
	ContextReferences []model.ContextReference
}

// UpdateInput は作業アイテムの部分更新の入力。
// nilのフィールドは変更しない。IDとCreatedAtは不変であり変更手段を持たない。
type UpdateInput struct {
	Title             *string
	Type              *model.WorkType
	TypeOther         *string
	Description       *string
	Repo              *string
	ContextReferences *[]model.ContextReference
	WorkflowState     *model.WorkflowState
	GeneratedSpec     *string
}

// List はコレクション全体を挿入順で返す。
// ストレージが存在しない場合や壊れている場合は空のスライスを返す。
// ここに保存されるのはUI向けのキャッシュ状態であり、破損を致命傷にしない。
func (s *Store) List() []model.WorkItem {
	return s.load()
}

// ListByState は指定ワークフロー状態のアイテムのみを挿入順で返す。
func (s *Store) ListByState(state model.WorkflowState) []model.WorkItem {
	all := s.load()
	filtered := make([]model.WorkItem, 0, len(all))
	for _, item := range all {
		if item.WorkflowState == state {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// GetByID は指定IDのアイテムを返す。見つからない場合はnilを返す。
func (s *Store) GetByID(id string) *model.WorkItem {
	for _, item := range s.load() {
		if item.ID == id {
			found := item
			return &found
		}
	}
	return nil
}

// Create は新しい作業アイテムを作成してコレクション末尾に追加する。
// IDを生成し、ワークフロー状態をDraftに強制し、作成・更新時刻を同一の現在時刻に設定する。
// 無効な作業種別の場合はエラーを返す。
func (s *Store) Create(input CreateInput) (*model.WorkItem, error) {
	if !input.Type.Valid() {
		return nil, model.NewInvalidWorkTypeError(string(input.Type))
	}

	now := time.Now()
	item := model.WorkItem{
		ID:                generateWorkItemID(),
		Title:             input.Title,
		Type:              input.Type,
		TypeOther:         input.TypeOther,
		Description:       input.Description,
		Repo:              input.Repo,
		ContextReferences: s.normalizeReferences(input.ContextReferences),
		WorkflowState:     model.WorkflowStateDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	all := s.load()
	all = append(all, item)
	s.save(all)

	return &item, nil
}

// Update は指定IDのアイテムに部分更新をマージして返す。
// IDとCreatedAtは不変。更新時刻は現在時刻に設定される。
// IDが見つからない場合は副作用なしでnilを返す。
func (s *Store) Update(id string, input UpdateInput) *model.WorkItem {
	all := s.load()

	for i := range all {
		if all[i].ID != id {
			continue
		}

		item := &all[i]
		if input.Title != nil {
			item.Title = *input.Title
		}
		if input.Type != nil && input.Type.Valid() {
			item.Type = *input.Type
		}
		if input.TypeOther != nil {
			item.TypeOther = *input.TypeOther
		}
		if input.Description != nil {
			item.Description = *input.Description
		}
		if input.Repo != nil {
			item.Repo = *input.Repo
		}
		if input.ContextReferences != nil {
			item.ContextReferences = s.normalizeReferences(*input.ContextReferences)
		}
		if input.WorkflowState != nil {
			if input.WorkflowState.Valid() {
				item.WorkflowState = *input.WorkflowState
			} else {
				slog.Warn("ignoring invalid workflow state",
					slog.String("id", id),
					slog.String("state", string(*input.WorkflowState)),
				)
			}
		}
		if input.GeneratedSpec != nil {
			spec := *input.GeneratedSpec
			if s.sanitizer != nil {
				spec = s.sanitizer.Sanitize(spec)
			}
			item.GeneratedSpec = spec
		}
		item.UpdatedAt = time.Now()

		s.save(all)

		updated := *item
		return &updated
	}

	return nil
}

// Transition は指定IDのアイテムのワークフロー状態のみを変更する。
// 3状態間の遷移に順序制約は課さない（どの状態からどの状態へも遷移可能）。
// 無効な状態が指定された場合は副作用なしでnilを返す。
func (s *Store) Transition(id string, state model.WorkflowState) *model.WorkItem {
	if !state.Valid() {
		slog.Warn("transition rejected: invalid workflow state",
			slog.String("id", id),
			slog.String("state", string(state)),
		)
		return nil
	}
	return s.Update(id, UpdateInput{WorkflowState: &state})
}

// Delete は指定IDのアイテムを削除する。削除が行われた場合のみtrueを返す。
func (s *Store) Delete(id string) bool {
	all := s.load()

	filtered := make([]model.WorkItem, 0, len(all))
	for _, item := range all {
		if item.ID != id {
			filtered = append(filtered, item)
		}
	}

	if len(filtered) == len(all) {
		return false
	}

	s.save(filtered)
	return true
}

// normalizeReferences はコンテキスト参照のIDを補完し、Markdown参照をサニタイズする。
// IDが空の参照、またはリスト内で既出のIDと重複する参照にはUUIDを割り当てる。
// IDはリスト内で一意になる。リスト順（表示順）は保持する。
func (s *Store) normalizeReferences(refs []model.ContextReference) []model.ContextReference {
	if refs == nil {
		return []model.ContextReference{}
	}

	seen := make(map[string]bool, len(refs))
	out := make([]model.ContextReference, len(refs))
	for i, ref := range refs {
		if ref.ID == "" || seen[ref.ID] {
			ref.ID = uuid.New().String()
		}
		seen[ref.ID] = true
		if ref.Type == model.ContextReferenceMarkdown && s.sanitizer != nil {
			ref.Value = s.sanitizer.Sanitize(ref.Value)
		}
		out[i] = ref
	}
	return out
}

// load はコレクション全体を読み出す。
// キーが存在しない場合や壊れている場合は空のスライスを返す。
func (s *Store) load() []model.WorkItem {
	raw, err := s.storage.Get(collectionKey)
	if err != nil {
		slog.Error("failed to read work item collection", slog.String("error", err.Error()))
		return []model.WorkItem{}
	}
	if raw == nil {
		return []model.WorkItem{}
	}

	var items []model.WorkItem
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.Warn("work item collection is corrupt, treating as empty",
			slog.String("error", err.Error()),
		)
		return []model.WorkItem{}
	}
	return items
}

// save はコレクション全体を書き戻す。
// 永続化失敗はログに残して握りつぶし、呼び出し元には伝播しない。
func (s *Store) save(items []model.WorkItem) {
	raw, err := json.Marshal(items)
	if err != nil {
		slog.Error("failed to serialize work item collection", slog.String("error", err.Error()))
		return
	}
	if err := s.storage.Set(collectionKey, raw); err != nil {
		slog.Error("failed to persist work item collection", slog.String("error", err.Error()))
	}
}
