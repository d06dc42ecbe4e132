package domain

// DefaultAspectRatio は UI の初期選択値です。
const DefaultAspectRatio = "1:1"

var supportedAspectRatios = []string{"1:1", "16:9", "3:4", "4:3", "9:16"}

// SupportedAspectRatios は Imagen に渡せるアスペクト比の一覧を表示順で返します。
func SupportedAspectRatios() []string {
	out := make([]string, len(supportedAspectRatios))
	copy(out, supportedAspectRatios)
	return out
}

// IsSupportedAspectRatio は値が列挙済みのアスペクト比かどうかを判定します。
func IsSupportedAspectRatio(ratio string) bool {
	for _, r := range supportedAspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}
