package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Aman-CERP/cmsindex/internal/cms"
)

type imageCrop struct {
	Src string `json:"src"`
}

// mediaURL extracts the file URL of a media item from its file property.
// Folders and unknown editors yield "".
func mediaURL(e *cms.Entity) string {
	if e.ContentType.Alias == cms.FolderAlias {
		return ""
	}
	p := e.Property(cms.FilePropertyAlias)
	if p == nil || p.Value == nil {
		return ""
	}

	switch p.EditorAlias {
	case cms.EditorUpload:
		return fmt.Sprint(p.Value)
	case cms.EditorImageCropper:
		switch v := p.Value.(type) {
		case map[string]any:
			src, _ := v["src"].(string)
			return src
		case string:
			if strings.HasPrefix(strings.TrimSpace(v), "{") {
				var crop imageCrop
				if err := json.Unmarshal([]byte(v), &crop); err == nil {
					return crop.Src
				}
			}
			return v
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}
