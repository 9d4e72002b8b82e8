package classify

import "strings"

type Kind string

const (
	KindSuccess       Kind = "success"
	KindRateLimited   Kind = "rate_limited"
	KindModelNotFound Kind = "model_not_found"
	KindFailure       Kind = "failure"
)

const (
	rateLimitedText   = "🚨 Batas permintaan tercapai (Rate Limit). Tunggu 60 detik."
	modelNotFoundText = "🚨 Model AI tidak ditemukan (404). Coba ganti Model ID."

	rateLimitedErr   = "🚨 Terlalu banyak permintaan! Google membatasi akses gratis. Coba lagi dalam 1 menit."
	modelNotFoundErr = "❌ Model API tidak merespon (404). Pastikan library 'agno' terbaru."
	technicalErr     = "❌ Terjadi kesalahan teknis: "
)

// Outcome is what the UI shows after an analysis. Result is set only for
// KindSuccess, Message only for the other kinds.
type Outcome struct {
	Kind    Kind
	Result  string
	Message string
}

func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// FromText classifies a model reply. Error codes are matched as plain
// substrings, so a report that mentions "404" is reported as a missing model.
func FromText(text string) Outcome {
	switch {
	case strings.Contains(text, "429"):
		return Outcome{Kind: KindRateLimited, Message: rateLimitedText}
	case strings.Contains(text, "404"):
		return Outcome{Kind: KindModelNotFound, Message: modelNotFoundText}
	}
	return Outcome{Kind: KindSuccess, Result: text}
}

// FromError classifies a failed model call by its error text.
func FromError(err error) Outcome {
	text := err.Error()
	switch {
	case strings.Contains(text, "429"):
		return Outcome{Kind: KindRateLimited, Message: rateLimitedErr}
	case strings.Contains(text, "404"):
		return Outcome{Kind: KindModelNotFound, Message: modelNotFoundErr}
	}
	return Outcome{Kind: KindFailure, Message: technicalErr + text}
}

// Failure reports err as a technical error without looking for status codes.
// Used for errors that never come from the model, such as an undecodable upload.
func Failure(err error) Outcome {
	return Outcome{Kind: KindFailure, Message: technicalErr + err.Error()}
}
