// Package main provides localization for the gifcast CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Encode image sequences as animated GIF": "画像シーケンスをアニメーションGIFにエンコード",

		// Commands
		"Encode a directory of frames as an animated GIF":  "フレームのディレクトリをアニメーションGIFにエンコード",
		"Print the estimated output size without encoding": "エンコードせずに推定出力サイズを表示",

		// Flags
		"YAML settings file":                        "YAML設定ファイル",
		"Quality (0.1-1.0)":                         "品質（0.1-1.0）",
		"Keep every Nth frame (1-5)":                "Nフレームごとに保持（1-5）",
		"Playback speed multiplier (0.25-4.0)":      "再生速度の倍率（0.25-4.0）",
		"Loop count (0 = infinite)":                 "ループ回数（0 = 無限）",
		"Disable error diffusion dithering":         "誤差拡散ディザリングを無効化",
		"Encoder backend (software, native)":        "エンコーダーバックエンド（software, native）",
		"Encoder preset (quality, balanced, speed)": "エンコーダープリセット（quality, balanced, speed）",
		"Source frame rate":                         "ソースのフレームレート",
		"Output GIF file path":                      "出力GIFファイルパス",
		"Crop area as X,Y,WxH":                      "切り抜き領域（X,Y,WxH 形式）",
		"Path to the native encoder wasm module":    "ネイティブエンコーダーのwasmモジュールへのパス",
		"Log level (debug, info, warn, error)":      "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                   "すべてのログ出力を抑制",

		// Errors
		"exactly one frame directory is required": "フレームディレクトリを1つだけ指定してください",
	})
}
