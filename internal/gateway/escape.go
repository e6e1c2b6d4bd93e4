package gateway

import "strings"

// EscapeForScript 信頼できない文字列をスクリプトのダブルクォート文字列リテラルに埋め込めるようにする
//
// バックスラッシュを最初に処理する。先に引用符を処理すると、挿入したバックスラッシュが二重にエスケープされる。
func EscapeForScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	// JavaScript の文字列リテラルを終端させる行区切り文字
	s = strings.ReplaceAll(s, "\u2028", `\u2028`)
	s = strings.ReplaceAll(s, "\u2029", `\u2029`)
	return s
}
