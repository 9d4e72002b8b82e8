package main

import "time"

type AnalyzeResponse struct {
	Kind    string `json:"kind"`
	Mode    string `json:"mode"`
	Result  string `json:"result"`
	Message string `json:"message"`
}

type BenchResult struct {
	File     string
	Format   string
	Mode     string
	Kind     string
	Duration time.Duration
	Chars    int
	Err      error
	Size     int64
}

type Agg struct {
	Count      int
	Total      time.Duration
	TotalBytes int64
	Kinds      map[string]int
}
