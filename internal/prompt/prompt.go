package prompt

import (
	"errors"
	"fmt"
	"strings"
)

type Mode string

const (
	ModeProfessional Mode = "Tenaga Medis"
	ModePatient      Mode = "Pasien / Umum"
)

var ErrUnknownMode = errors.New("unknown explanation mode")

const BaseQuery = `
Anda adalah asisten AI analisis citra medis yang bertugas secara bertanggung jawab dan etis.

1. Validasi Gambar: Tentukan apakah gambar merupakan citra medis valid (X-ray, CT, MRI, USG). Jika bukan, nyatakan tidak dapat dianalisis.
2. Jenis & Area Gambar: Identifikasi jenis pencitraan dan area anatomi.
3. Temuan Utama: Jelaskan kelainan atau temuan secara sistematis.
4. Penilaian Diagnostik: Diagnosis paling mungkin dan 3 diagnosis banding.
5. Risiko: Skor keyakinan (0.0-1.0) dan Klasifikasi risiko (Rendah/Sedang/Tinggi).
6. Ringkasan: Maksimal 5 poin eksekutif.
7. Rekomendasi: Saran umum tanpa dosis obat.
8. Penjelasan Ramah Pasien: Gunakan bahasa yang mudah dimengerti.

Analisis ini hanya untuk edukasi, bukan diagnosis resmi.
`

const (
	ProfessionalSuffix = "\nGunakan istilah medis profesional."
	PatientSuffix      = "\nGunakan bahasa yang sangat sederhana."
)

// Build returns the full instruction sent with every image. Anything other
// than ModeProfessional gets the lay-audience suffix.
func Build(mode Mode) string {
	if mode == ModeProfessional {
		return BaseQuery + ProfessionalSuffix
	}
	return BaseQuery + PatientSuffix
}

// Modes lists the selectable modes in display order.
func Modes() []Mode {
	return []Mode{ModeProfessional, ModePatient}
}

func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	for _, m := range Modes() {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	switch strings.ToLower(s) {
	case "professional":
		return ModeProfessional, nil
	case "patient":
		return ModePatient, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Slug is the short label used in metrics and API payloads.
func (m Mode) Slug() string {
	if m == ModeProfessional {
		return "professional"
	}
	return "patient"
}

var medicalKeywords = []string{"xray", "ct", "mri", "usg", "ultrasound", "scan", "radiology"}

// LooksMedical reports whether the upload name hints at a medical image.
func LooksMedical(filename string) bool {
	name := strings.ToLower(filename)
	for _, k := range medicalKeywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}
