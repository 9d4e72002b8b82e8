package models

import (
	"fmt"

	"github.com/yogaaditandanu/medical-image-analysis/internal/staging"
)

// Upload is an image received from the browser. It lives only for one
// interaction cycle and is never persisted.
type Upload struct {
	FileName string
	Data     []byte
}

func (u Upload) Validate() error {
	if u.FileName == "" {
		return fmt.Errorf("file name is empty")
	}
	if len(u.Data) == 0 {
		return fmt.Errorf("file %s is empty", u.FileName)
	}
	if !staging.AllowedExtension(u.FileName) {
		return fmt.Errorf("file %s: only jpg, jpeg and png are accepted", u.FileName)
	}
	return nil
}

// AnalyzeResponse is returned by the JSON API.
type AnalyzeResponse struct {
	Kind    string `json:"kind" example:"success"`
	Mode    string `json:"mode" example:"patient"`
	Result  string `json:"result,omitempty" example:"## Jenis & Area Gambar\nRontgen dada PA..."`
	Message string `json:"message,omitempty" example:"Batas permintaan tercapai (Rate Limit). Tunggu 60 detik."`
}

type ErrorResponse struct {
	Error string `json:"error" example:"file scan.gif: only jpg, jpeg and png are accepted"`
}
