package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	TypeCounts   map[string]int64 // lowercase extension without dot, "unknown" if none
}

// CollectStats lists the bucket once and aggregates size and type counts.
func CollectStats(ctx context.Context, store ObjectStore) (*BucketStats, error) {
	objects, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &BucketStats{TypeCounts: make(map[string]int64)}
	for _, obj := range objects {
		stats.TotalObjects++
		stats.TotalSize += obj.Size
		if obj.LastModified.After(stats.LastModified) {
			stats.LastModified = obj.LastModified
		}
		stats.TypeCounts[fileExtension(obj.Key)]++
	}
	return stats, nil
}

// SortedTypes returns the extensions in TypeCounts in lexical order.
func (s *BucketStats) SortedTypes() []string {
	types := make([]string, 0, len(s.TypeCounts))
	for ext := range s.TypeCounts {
		types = append(types, ext)
	}
	sort.Strings(types)
	return types
}

// fileExtension 获取文件扩展名
func fileExtension(key string) string {
	ext := strings.TrimPrefix(path.Ext(key), ".")
	if ext == "" {
		return "unknown"
	}
	return strings.ToLower(ext)
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
