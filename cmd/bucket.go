package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"musicbox/core/catalog"
	"musicbox/core/upload"
	"musicbox/storage"

	"github.com/spf13/cobra"
)

var (
	bucketStats bool
	bucketProbe bool
)

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "对象存储桶管理",
	Long:  `查看存储桶中的音频文件，支持查看统计信息和连接测试。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateStorage(); err != nil {
			return err
		}
		fmt.Printf("存储配置: %s, Bucket: %s\n", cfg.S3Endpoint, cfg.S3Bucket)

		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			return fmt.Errorf("创建存储客户端失败: %w", err)
		}
		ctx := cmd.Context()

		switch {
		case bucketProbe:
			return runProbe(ctx, store)
		case bucketStats:
			return runStats(ctx, store)
		default:
			return runList(ctx, store)
		}
	},
}

func runProbe(ctx context.Context, store storage.ObjectStore) error {
	result, err := store.Probe(ctx)
	if err != nil {
		return fmt.Errorf("连接测试失败: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runStats(ctx context.Context, store storage.ObjectStore) error {
	stats, err := storage.CollectStats(ctx, store)
	if err != nil {
		return fmt.Errorf("获取存储桶统计信息失败: %w", err)
	}
	fmt.Printf("\n存储桶统计信息:\n")
	fmt.Printf("总文件数: %d\n", stats.TotalObjects)
	fmt.Printf("总大小: %s\n", storage.FormatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Printf("最后修改时间: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("\n文件类型统计:\n")
	for _, ext := range stats.SortedTypes() {
		fmt.Printf("  %s: %d\n", ext, stats.TypeCounts[ext])
	}
	return nil
}

func runList(ctx context.Context, store storage.ObjectStore) error {
	objects, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("列出文件失败: %w", err)
	}
	count := 0
	for _, obj := range objects {
		if !upload.IsAllowed(obj.Key) {
			continue
		}
		count++
		fmt.Printf("%-50s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size), catalog.Title(obj.Key))
	}
	fmt.Printf("\n共 %d 个音频文件 (存储桶中共 %d 个对象)\n", count, len(objects))
	return nil
}

func init() {
	bucketCmd.Flags().BoolVarP(&bucketStats, "stats", "s", false, "显示存储桶统计信息")
	bucketCmd.Flags().BoolVar(&bucketProbe, "probe", false, "测试存储连接")
	rootCmd.AddCommand(bucketCmd)
}
