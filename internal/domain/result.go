package domain

// FailureReason 更新系操作の失敗理由
type FailureReason string

const (
	ReasonNone                FailureReason = ""
	ReasonNotFound            FailureReason = "not-found"
	ReasonAuthorizationDenied FailureReason = "authorization-denied"
	ReasonSaveError           FailureReason = "save-error"
	ReasonUnknown             FailureReason = "unknown"
)

// MutationResult 作成・更新・削除の結果
type MutationResult struct {
	Success bool          `json:"success"`
	Reason  FailureReason `json:"reason,omitempty"`
	// Detail スクリプトが返した診断メッセージ（失敗時のみ）
	Detail string `json:"detail,omitempty"`
}

// Succeeded 成功結果を返す
func Succeeded() MutationResult {
	return MutationResult{Success: true}
}

// Failed 失敗結果を返す
func Failed(reason FailureReason, detail string) MutationResult {
	return MutationResult{Reason: reason, Detail: detail}
}
