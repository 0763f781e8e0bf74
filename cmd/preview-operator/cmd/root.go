// file: cmd/preview-operator/cmd/root.go

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/fx147/preview-operator/internal/preview-operator/util"
	platformv1 "github.com/fx147/preview-operator/pkg/apis/platform/v1"
	"github.com/fx147/preview-operator/pkg/checkpoint"
	"github.com/fx147/preview-operator/pkg/dispatcher"
	"github.com/fx147/preview-operator/pkg/metrics"
	"github.com/fx147/preview-operator/pkg/previewenv"
	"github.com/fx147/preview-operator/pkg/statecache"
	"github.com/fx147/preview-operator/pkg/watch"
)

var (
	// cfgFile 用于存储配置文件的路径
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "preview-operator",
		Short: "An operator that reconciles PreviewEnvironment resources",
		Long: `preview-operator watches PreviewEnvironment objects on a Kubernetes-style
API server and reconciles each one into a Deployment, a Service, and an
Ambassador Mapping. Deleting a PreviewEnvironment tears the three down.

All object state is kept in memory and rebuilt from the API server on
restart; the optional state file only stores watch resume tokens.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
)

// Execute 是 main.go 将调用的主函数。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.preview-operator.yaml)")

	// API Server 连接相关的标志
	rootCmd.Flags().String("server", "", "The base URL of the API server, e.g. https://10.0.0.1:6443")
	rootCmd.Flags().String("token", "", "Bearer token for the API server (may also come from config or env)")
	rootCmd.Flags().String("namespace", "default", "The namespace to watch")

	// 调谐循环相关的标志
	rootCmd.Flags().Int("workers", 4, "Number of concurrent reconcile workers")
	rootCmd.Flags().Int("max-stream-failures", 10, "Consecutive watch failures tolerated before the operator exits")
	rootCmd.Flags().Duration("shutdown-grace", 0, "How long to wait for in-flight reconciles on shutdown (default 30s)")
	rootCmd.Flags().String("state-file", "", "Path of the bbolt file storing watch resume tokens (empty disables checkpointing)")
	rootCmd.Flags().String("metrics-addr", ":8080", "Address to serve /metrics and /healthz on")

	// 将标志与 viper 绑定，使它们也可以通过配置文件或环境变量设置
	viper.BindPFlags(rootCmd.Flags())
}

// initConfig 读取配置文件和环境变量（如果设置了的话）。
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".preview-operator")
	}

	viper.SetEnvPrefix("PREVIEW_OPERATOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		klog.V(2).Infof("Using config file: %s", viper.ConfigFileUsed())
	}
}

// run 组装并运行整个控制器：
// clientset → 状态缓存 → checkpoint → watch adapter → dispatcher → metrics。
func run(ctx context.Context) error {
	cs, err := util.NewClientsetFromFlags()
	if err != nil {
		return err
	}
	namespace := viper.GetString("namespace")

	cache := statecache.New()

	var tokens watch.ResumeTokenStore
	if path := viper.GetString("state-file"); path != "" {
		store, err := checkpoint.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		tokens = store.ForResource(platformv1.Resource)
	}

	adapter := watch.NewAdapter(cs.PreviewEnvironments(namespace), cache, tokens, watch.Options{
		MaxConsecutiveFailures: viper.GetInt("max-stream-failures"),
	})

	handler := previewenv.NewHandler(cs, namespace)
	disp := dispatcher.New(cache, handler.Reconcile, handler.Teardown, dispatcher.Options{
		Workers:       viper.GetInt("workers"),
		ShutdownGrace: viper.GetDuration("shutdown-grace"),
		Checkpoint:    tokens,
	})

	exporter := metrics.NewExporter(viper.GetString("metrics-addr"))
	if err := exporter.Listen(); err != nil {
		return err
	}

	klog.Infof("Starting preview-operator (namespace=%s)", namespace)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := adapter.Run(ctx)
		if err != nil && ctx.Err() == nil {
			// 唯一会向进程所有者上抛的错误类别：watch 流彻底失败
			exporter.MarkUnhealthy()
			return fmt.Errorf("watch stream failed fatally: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return disp.Run(ctx, adapter.Events())
	})

	g.Go(func() error {
		return exporter.Serve()
	})
	g.Go(func() error {
		<-ctx.Done()
		return exporter.Shutdown()
	})

	return g.Wait()
}
