// Package storage はクライアントローカルなキーバリュー永続化基盤を提供する。
// セッション状態と作業アイテムコレクションの保存先として使われる。
// 値は文字列化されたJSONを想定するが、基盤自体は内容を解釈しない。
package storage

// Store はキーバリュー永続化のインターフェース。
type Store interface {
	// Get は指定キーの値を返す。キーが存在しない場合はnilを返す。
	Get(key string) ([]byte, error)

	// Set は指定キーに値を保存する。既存の値は上書きされる。
	Set(key string, value []byte) error

	// Delete は指定キーの値を削除する。キーが存在しない場合も成功とする。
	Delete(key string) error
}
