package cmd

import (
	"fmt"

	"musicbox/cache"
	"musicbox/logger"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试会话吊销列表使用的 Redis 连接，并进行一次写入和读取。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.RedisEnabled() {
			return fmt.Errorf("REDIS_HOST is not set")
		}
		fmt.Printf("Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		client, err := cache.NewRedisClient(cfg)
		if err != nil {
			return err
		}
		fmt.Println("Redis连接成功！")

		revoker := cache.NewRedisRevoker(client)
		defer func() {
			if err := revoker.Close(); err != nil {
				logger.Warn("关闭Redis连接时发生错误", logger.ErrorField(err))
			}
		}()

		if err := cache.ProbeRedis(cmd.Context(), revoker); err != nil {
			return fmt.Errorf("Redis操作测试失败: %w", err)
		}
		fmt.Println("Redis基本操作测试成功！")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
