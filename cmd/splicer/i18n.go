// Package main provides localization for the splicer CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag groups
		"Editing":  "編集",
		"Project":  "プロジェクト",
		"Output":   "出力",
		"Playback": "再生",
		"Logging":  "ログ",

		// Root command
		"Non-destructive clip timeline with synchronized preview playback": "非破壊クリップタイムラインと同期プレビュー再生",

		// Commands
		"Show media information for a file":          "メディアファイルの情報を表示",
		"Play an edited timeline headlessly":         "編集したタイムラインをヘッドレスで再生",
		"Write the frame at a timestamp as an image": "指定時刻のフレームを画像で書き出し",
		"Show version information":                   "バージョン情報を表示",

		// Arguments and flags
		"Media file to probe":                  "調べるメディアファイル",
		"Media file":                           "メディアファイル",
		"Media files placed one after another": "順番に並べるメディアファイル",
		"Split the visible clip at this timeline position (repeatable)":                 "このタイムライン位置で表示中のクリップを分割（複数指定可）",
		"Delete the clip with this id after splitting (repeatable)":                     "分割後にこのIDのクリップを削除（複数指定可）",
		"Start playback at this timeline position":                                      "このタイムライン位置から再生を開始",
		"Project file: loaded when no files are given, otherwise written after editing": "プロジェクトファイル: ファイル未指定時は読み込み、それ以外は編集後に書き出し",
		"Configuration file (YAML)":                                                     "設定ファイル（YAML）",
		"Directory for PNG snapshots of presented frames":                               "表示フレームのPNGスナップショット出力先",
		"Write one snapshot every N presented frames":                                   "表示フレームN枚ごとにスナップショットを保存",
		"Output playback summary to file (Markdown format)":                             "再生サマリーをファイルに出力（Markdown形式）",
		"Seek instead of decoding forward beyond this distance":                         "この距離を超える場合は前方デコードせずにシーク",
		"Presentations per second":                                                      "1秒あたりの表示回数",
		"Disable audio output":                                                          "音声出力を無効化",
		"Source timestamp to capture":                                                   "書き出すソース時刻",
		"Output image path (.png, .jpg or .jpeg)":                                       "出力画像パス（.png, .jpg, .jpeg）",
		"JPEG quality (1-100)":                                                          "JPEG品質（1-100）",
		"Scale the frame to fit this width (0 = source size)":                           "この幅に収まるよう縮小（0 = 元のサイズ）",
		"Log level (debug, info, warn, error)":                                          "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                                                       "全てのログ出力を抑制",

		// Probe output
		"Backend: %s":                 "バックエンド: %s",
		"Resolution: %dx%d":           "解像度: %dx%d",
		"Frame rate: %.3f fps":        "フレームレート: %.3f fps",
		"Duration: %s":                "長さ: %s",
		"Audio: %v":                   "音声: %v",
		"Codec: %s":                   "コーデック: %s",
		"Keyframes: %d of %d samples": "キーフレーム: %d / %d サンプル",
		"Fragmented MP4":              "フラグメント化MP4",

		// Version and errors
		"splicer version %s (%s backend)":             "splicer バージョン %s (%s バックエンド)",
		"Either media files or --project is required": "メディアファイルか --project の指定が必要です",

		// Summary content
		"Playback Summary":     "再生サマリー",
		"Generated":            "生成日時",
		"Backend":              "バックエンド",
		"Sources":              "ソース",
		"Path":                 "パス",
		"Resolution":           "解像度",
		"Frame Rate":           "フレームレート",
		"Duration":             "長さ",
		"Audio":                "音声",
		"Yes":                  "あり",
		"No":                   "なし",
		"Timeline":             "タイムライン",
		"Clips":                "クリップ数",
		"End":                  "終端",
		"Source":               "ソース",
		"Start":                "開始",
		"Position":             "位置",
		"Metric":               "項目",
		"Value":                "値",
		"Wall Time":            "実時間",
		"Final Position":       "最終位置",
		"Ticks":                "ティック数",
		"Frames Presented":     "表示フレーム数",
		"Frames Held":          "保持フレーム数",
		"Gap Ticks":            "空白ティック数",
		"Seeks":                "シーク回数",
		"Skipped Frames":       "スキップしたフレーム数",
		"Stalls":               "停滞回数",
		"Decode Errors":        "デコードエラー数",
		"Sessions Opened":      "セッション数",
		"Reopens":              "再オープン回数",
		"N/A":                  "N/A",
		"Generated by splicer": "生成: splicer",
	})
}
