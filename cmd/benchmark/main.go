package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

var (
	formatFiles = []string{"jpg", "jpeg", "png"}
	modes       = []string{"professional", "patient"}
)

func main() {
	endpoint := flag.String("endpoint", "http://localhost:8080/api/v1/analyze", "analyze endpoint")
	dataDir := flag.String("data", "data", "directory with <format>/ subdirectories of images")
	flag.Parse()

	ctx := context.Background()

	var results []BenchResult
	for _, formatFile := range formatFiles {
		dataPath := filepath.Join(*dataDir, formatFile)

		images, _ := os.ReadDir(dataPath)

		for _, img := range images {
			filePath := filepath.Join(dataPath, img.Name())
			for _, mode := range modes {
				res := benchmarkImage(ctx, *endpoint, filePath, mode)

				if res.Err != nil {
					log.Println("ERR:", res.Err)
				} else {
					log.Printf("OK %s [%s] %s %v", res.File, res.Mode, res.Kind, res.Duration)
				}

				results = append(results, res)
			}
		}
	}

	printMarkdown(results)
}

func benchmarkImage(ctx context.Context, endpoint, filePath, mode string) BenchResult {
	start := time.Now()
	format := strings.TrimPrefix(filepath.Ext(filePath), ".")

	fileRaw, err := os.ReadFile(filePath)
	if err != nil {
		return BenchResult{File: filePath, Format: format, Mode: mode, Err: err}
	}

	resp, err := sendAnalyze(ctx, endpoint, filepath.Base(filePath), fileRaw, mode)
	res := BenchResult{
		File:     filepath.Base(filePath),
		Format:   format,
		Mode:     mode,
		Duration: time.Since(start),
		Err:      err,
		Size:     int64(len(fileRaw)),
	}
	if err == nil {
		res.Kind = resp.Kind
		res.Chars = len(resp.Result)
	}
	return res
}

func sendAnalyze(ctx context.Context, endpoint, fileName string, data []byte, mode string) (*AnalyzeResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("mode", mode); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status %d: %s",
			resp.StatusCode,
			strings.TrimSpace(string(raw)),
		)
	}

	var out AnalyzeResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func aggregate(results []BenchResult) map[string]Agg {
	m := map[string]Agg{}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		key := r.Format + "/" + r.Mode
		a := m[key]
		if a.Kinds == nil {
			a.Kinds = map[string]int{}
		}
		a.Count++
		a.TotalBytes += r.Size
		a.Total += r.Duration
		a.Kinds[r.Kind]++
		m[key] = a
	}
	return m
}

func printMarkdown(results []BenchResult) {
	fmt.Println("\n## Benchmark Results")
	fmt.Println()
	fmt.Println("| Format/Mode | Requests | Avg Time | Total Time | Avg File Size | Outcomes |")
	fmt.Println("|-------------|----------|----------|------------|---------------|----------|")

	agg := aggregate(results)
	keys := make([]string, 0, len(agg))
	for k := range agg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		totalCount    int
		totalDuration time.Duration
		totalBytes    int64
	)

	for _, key := range keys {
		a := agg[key]
		avg := a.Total / time.Duration(a.Count)
		avgSize := a.TotalBytes / int64(a.Count)
		fmt.Printf("| %s | %d | %v | %v | %s | %s |\n",
			key,
			a.Count,
			avg.Round(time.Millisecond),
			a.Total.Round(time.Millisecond),
			humanBytes(avgSize),
			formatKinds(a.Kinds),
		)
		totalCount += a.Count
		totalDuration += a.Total
		totalBytes += a.TotalBytes
	}

	if totalCount > 0 {
		mean := totalDuration / time.Duration(totalCount)
		avgSize := totalBytes / int64(totalCount)
		fmt.Printf("| **ALL** | %d | %v | %v | %s | |\n",
			totalCount,
			mean.Round(time.Millisecond),
			totalDuration.Round(time.Millisecond),
			humanBytes(avgSize),
		)
	}
}

func formatKinds(kinds map[string]int) string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", k, kinds[k]))
	}
	return strings.Join(parts, " ")
}

func humanBytes(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case size >= GB:
		return fmt.Sprintf("%.2f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.2f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.2f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
