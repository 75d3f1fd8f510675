package experiment

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"heatstore/config"
	"heatstore/history"
	"heatstore/output"
)

// OpenSink 按 [output] 段打开输出目的地，S3 密钥走默认凭证链
func OpenSink(ctx context.Context, c config.Output) (output.Sink, error) {
	return output.Open(ctx, output.Options{
		Driver: output.Driver(c.Driver),
		Root:   c.Root,
		S3: output.S3Config{
			Region:    c.S3Region,
			Bucket:    c.S3Bucket,
			Prefix:    c.S3Prefix,
			Endpoint:  c.S3Endpoint,
			PathStyle: c.S3PathStyle,
		},
	})
}

// OpenHistory [history] 段未配置 driver 时返回 nil, nil
func OpenHistory(ctx context.Context, c config.History) (*history.Store, error) {
	if c.Driver == "" {
		return nil, nil
	}
	return history.Open(ctx, c.Driver, c.DSN)
}

// Execute 先推进主计算，[mms] 启用时再做收敛性检验
func Execute(ctx context.Context, cfg *config.Config, sink output.Sink, metrics *Metrics, store *history.Store) error {
	// no_output 只关闭主计算的输出，收敛性检验总要写统计
	if cfg.MMS.Enabled && sink == nil {
		return fmt.Errorf("%w: mms statistics", ErrNoSink)
	}
	e, err := New(ctx, cfg, sink, metrics)
	if err != nil {
		return err
	}
	if err := e.Run(ctx); err != nil {
		return err
	}
	if !cfg.MMS.Enabled {
		return nil
	}
	tester, err := RunMMS(ctx, cfg.MMS, sink, metrics, store)
	if err != nil {
		return err
	}
	series := tester.Series()
	last := series[len(series)-1]
	log.WithFields(log.Fields{
		"levels": len(series),
		"error":  last.Error,
		"order":  last.Order,
	}).Info("mms finished")
	return nil
}
