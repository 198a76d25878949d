// Package model はドメインモデルを定義する。
package model

import "time"

// WorkType は作業アイテムの種別を表す。
type WorkType string

const (
	// WorkTypeFeatureRequest は既存アプリへの機能追加要望。
	WorkTypeFeatureRequest WorkType = "Feature Request to existing App"
	// WorkTypeIterativeImprovement は既存機能の反復的な改善。
	WorkTypeIterativeImprovement WorkType = "Iterative Improvements to existing feature(s)"
	// WorkTypeNewInitiative は新規アプリ・新規施策の立ち上げ。
	WorkTypeNewInitiative WorkType = "Brand New App/Initiative"
	// WorkTypeNewIntegration は既存アプリへの新規インテグレーション。
	WorkTypeNewIntegration WorkType = "New Integration to existing App"
	// WorkTypeProcessAlteration はプロセス・アプリ構成要素の変更。
	WorkTypeProcessAlteration WorkType = "Alterations to Process/App Component"
	// WorkTypeOther はその他。TypeOtherによる補足説明が必須となる。
	WorkTypeOther WorkType = "Other"
)

// Valid はWorkTypeが定義済みの6種別のいずれかであるかを返す。
func (t WorkType) Valid() bool {
	switch t {
	case WorkTypeFeatureRequest,
		WorkTypeIterativeImprovement,
		WorkTypeNewInitiative,
		WorkTypeNewIntegration,
		WorkTypeProcessAlteration,
		WorkTypeOther:
		return true
	}
	return false
}

// WorkflowState は作業アイテムのワークフロー状態を表す。
type WorkflowState string

const (
	// WorkflowStateDraft は起票直後の下書き状態。
	WorkflowStateDraft WorkflowState = "Draft"
	// WorkflowStateSpecGenerated は仕様書が生成された状態。
	WorkflowStateSpecGenerated WorkflowState = "Spec Generated"
	// WorkflowStateReady は開発着手可能な状態。
	WorkflowStateReady WorkflowState = "Ready for Development"
)

// Valid はWorkflowStateが定義済みの3状態のいずれかであるかを返す。
func (s WorkflowState) Valid() bool {
	switch s {
	case WorkflowStateDraft, WorkflowStateSpecGenerated, WorkflowStateReady:
		return true
	}
	return false
}

// ContextReferenceType はコンテキスト参照の種別を表す。
type ContextReferenceType string

const (
	// ContextReferencePath はリポジトリ内のファイルパス参照。
	ContextReferencePath ContextReferenceType = "path"
	// ContextReferenceMarkdown は埋め込みMarkdownドキュメント。
	ContextReferenceMarkdown ContextReferenceType = "markdown"
)

// ContextReference は作業アイテムに添付されるコンテキスト参照を表す。
// 仕様書生成の入力として使われ、リスト順が表示順となる。
type ContextReference struct {
	ID    string               `json:"id"`
	Type  ContextReferenceType `json:"type"`
	Value string               `json:"value"` // ファイルパスまたはMarkdown本文
	Label string               `json:"label"` // 表示名
}

// WorkItem は計画対象の作業の塊（Feature/Epic/Story）を表す。
type WorkItem struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Type              WorkType           `json:"type"`
	TypeOther         string             `json:"typeOther,omitempty"` // TypeがOtherの場合のみ使用
	Description       string             `json:"description"`
	Repo              string             `json:"repo,omitempty"`
	ContextReferences []ContextReference `json:"contextReferences"`
	WorkflowState     WorkflowState      `json:"workflowState"`
	GeneratedSpec     string             `json:"generatedSpec,omitempty"` // 生成された技術仕様書
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}
