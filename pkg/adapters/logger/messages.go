package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Export orchestration (info)
		"Starting export: %d frames at %dx%d": "エクスポートを開始: %d フレーム (%dx%d)",
		"Export complete: %d bytes in %d ms":  "エクスポート完了: %d バイト (%d ms)",
		"Export cancelled":                    "エクスポートをキャンセルしました",
		"Output saved to %s":                  "出力を %s に保存しました",
		"Loaded %d frames from %s":            "%s から %d フレームを読み込みました",
		"Estimated output size: %d KB":        "推定出力サイズ: %d KB",
		"Interrupted, shutting down...":       "中断されました。シャットダウン中...",

		// Encoder selection
		"Encoder %s unavailable (%s), falling back to %s": "エンコーダー %s が利用できません (%s)。%s にフォールバックします",
		"Native encoder module loaded from %s":            "ネイティブエンコーダーモジュールを %s から読み込みました",
		"Native encoder unavailable, using software encoder": "ネイティブエンコーダーが利用できないため、ソフトウェアエンコーダーを使用します",

		// Worker (debug)
		"Encoder %s initialized for %d frames":  "エンコーダー %s を初期化しました (%d フレーム)",
		"Encoded %d frames in %d ms (%d bytes)": "%d フレームをエンコードしました (%d ms, %d バイト)",
		"Job cancelled, encoder disposed":       "ジョブをキャンセルし、エンコーダーを破棄しました",

		// Warnings
		"Frame %d unreadable, substituting blank frame": "フレーム %d を読み取れません。空のフレームで代替します",
		"Low available memory: %d MB free, export may need about %d MB": "空きメモリが不足しています: 空き %d MB、エクスポートには約 %d MB 必要な可能性があります",

		// Errors
		"Failed to load frames: %s":  "フレームの読み込みに失敗しました: %s",
		"Failed to encode: %s":       "エンコードに失敗しました: %s",
		"Failed to write output: %s": "出力の書き込みに失敗しました: %s",
	})
}
