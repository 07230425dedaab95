package cmd

import (
	"musicbox/server"

	"github.com/spf13/cobra"
)

var serverPort string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 musicbox 服务器",
	Long:  `启动 HTTP 服务器，提供播放页面、上传接口和曲目列表 API`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverPort != "" {
			cfg.Port = serverPort
		}
		return server.Start(cfg)
	},
}

func init() {
	serverCmd.Flags().StringVarP(&serverPort, "port", "p", "", "监听端口 (覆盖 PORT)")
	rootCmd.AddCommand(serverCmd)
}
