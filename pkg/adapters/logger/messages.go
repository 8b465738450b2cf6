package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Timeline edits
		"Loaded clip %d from %s (%s)":       "%[2]s からクリップ %[1]d を読み込みました (%[3]s)",
		"Split clip %d at %s into %d":       "クリップ %d を %s で分割しました (新規 %d)",
		"Deleted clip %d":                   "クリップ %d を削除しました",
		"Moved clip %d to %s":               "クリップ %d を %s へ移動しました",
		"Selected clip %d":                  "クリップ %d を選択しました",
		"Cannot restore clip %d: %v":        "クリップ %d を復元できません: %v",
		"Project saved to %s":               "プロジェクトを %s に保存しました",
		"Project loaded from %s (%d clips)": "プロジェクトを %s から読み込みました (%d クリップ)",

		// Playback
		"Playback started at %s":               "%s から再生を開始しました",
		"Playback paused at %s":                "%s で一時停止しました",
		"Playback stopped":                     "再生を停止しました",
		"Reached end of timeline at %s":        "タイムラインの終端 %s に到達しました",
		"Playback started without a frame: %v": "フレームなしで再生を開始しました: %v",
		"Decoder stalled at %s, target %s":     "デコーダが %s で停滞しています (目標 %s)",
		"Seek to %s failed, reopening %s: %v":  "%s へのシークに失敗しました。%s を開き直します: %v",
		"Cannot present %s: %v":                "%s のフレームを表示できません: %v",

		// Sources and decoding
		"Cannot open %s: %v":           "%s を開けません: %v",
		"Cannot open audio stream: %v": "音声ストリームを開けません: %v",
		"Audio disabled for %s: %v":    "%s の音声を無効化しました: %v",
		"Audio player error: %v":       "音声プレイヤーのエラー: %v",
		"Opened decode session for %s": "%s のデコードセッションを開きました",
		"Registered source %s":         "ソース %s を登録しました",
		"Released source %s":           "ソース %s を解放しました",

		// Output
		"Output saved to %s":            "出力を %s に保存しました",
		"Cannot save snapshot: %v":      "スナップショットを保存できません: %v",
		"Summary saved to %s":           "サマリーを %s に保存しました",
		"Failed to write summary: %s":   "サマリーの書き込みに失敗しました: %s",
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",
	})
}
