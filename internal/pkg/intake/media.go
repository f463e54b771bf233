package intake

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/airenas/rhemaflow/internal/pkg/utils"
)

// Kind of the uploaded media
type Kind int

const (
	// Audio media
	Audio Kind = iota + 1
	// Video media, may contain on-screen text
	Video
)

func (k Kind) String() string {
	switch k {
	case Audio:
		return "audio"
	case Video:
		return "video"
	}
	return ""
}

// ext -> mime type
var (
	audioExt = map[string]string{".mp3": "audio/mpeg", ".m4a": "audio/mp4", ".wav": "audio/wav",
		".webm": "audio/webm", ".ogg": "audio/ogg", ".aac": "audio/aac", ".flac": "audio/flac"}
	videoExt = map[string]string{".mp4": "video/mp4", ".mov": "video/quicktime", ".avi": "video/x-msvideo",
		".mkv": "video/x-matroska", ".webm": "video/webm", ".wmv": "video/x-ms-wmv"}
)

// Classify returns media kind and mime type by the file extension.
// webm is listed as both audio and video, video wins
func Classify(fileName string) (Kind, string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if mt, ok := videoExt[ext]; ok {
		return Video, mt, nil
	}
	if mt, ok := audioExt[ext]; ok {
		return Audio, mt, nil
	}
	return 0, "", utils.NewValidationError("Unsupported file type (%s). Use one of: %s", displayExt(ext),
		strings.Join(AllowedExt(), ", "))
}

// AllowedExt returns sorted supported extensions
func AllowedExt() []string {
	set := map[string]bool{}
	for k := range audioExt {
		set[k] = true
	}
	for k := range videoExt {
		set[k] = true
	}
	res := make([]string, 0, len(set))
	for k := range set {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

func displayExt(ext string) string {
	if ext == "" {
		return "no extension"
	}
	return ext
}
