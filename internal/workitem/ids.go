package workitem

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// idPrefix は作業アイテムIDの接頭辞。bow = body of work。
const idPrefix = "bow"

// generateWorkItemID は時刻ベースの接頭辞とランダムな接尾辞からIDを生成する。
// 例: bow_1735689600123_a3f09c1b4d2e
// 同一ミリ秒内の衝突確率はランダム部48bitにより無視できる水準となる。
func generateWorkItemID() string {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/randの失敗は実運用上起こらないが、IDなしで続行はできない
		panic(fmt.Sprintf("failed to generate work item id: %v", err))
	}
	return fmt.Sprintf("%s_%d_%s", idPrefix, time.Now().UnixMilli(), hex.EncodeToString(suffix))
}
