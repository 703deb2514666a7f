package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"WaterTruckDashboard/src/config"
	"WaterTruckDashboard/src/dashboard"
	"WaterTruckDashboard/src/datapush"
	"WaterTruckDashboard/src/datasource/email"
	"WaterTruckDashboard/src/datasource/file"
	"WaterTruckDashboard/src/processor"
	"WaterTruckDashboard/src/storage"

	"github.com/robfig/cron"
)

// emailWindow 只检查最近24小时内的邮件
const emailWindow = 24 * time.Hour

// app 进程内的全部组件
type app struct {
	cfg     *config.Config
	dcfg    *config.DataConfig
	logger  *storage.Logger
	loader  *file.Loader
	metrics *dashboard.Metrics
	store   *dashboard.Store
	handler *dashboard.Handler
	pusher  *datapush.Pusher

	mu     sync.Mutex
	source datasetSource // 最近一次成功加载的来源
}

// datasetSource 数据集来源：本地路径，或未落盘的邮件附件内容
type datasetSource struct {
	path string
	name string
	data []byte
}

func (src datasetSource) String() string {
	if src.path != "" {
		return src.path
	}
	return src.name
}

func newApp(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) (*app, error) {
	if err := dcfg.Validate(); err != nil {
		return nil, err
	}
	pipeline, err := processor.NewPipeline(processor.OptionsFromConfig(dcfg), logger)
	if err != nil {
		return nil, err
	}

	metrics := dashboard.NewMetrics()
	store := dashboard.NewStore(pipeline, dashboard.NewAnalyzer(dcfg), metrics, logger)

	a := &app{
		cfg:     cfg,
		dcfg:    dcfg,
		logger:  logger,
		loader:  file.NewLoader(dcfg, logger),
		metrics: metrics,
		store:   store,
		handler: dashboard.NewHandler(store, metrics, logger),
		source:  datasetSource{path: cfg.DatasetPath},
	}
	if cfg.SendEmail.Enabled {
		a.pusher = datapush.NewPusher(cfg, logger)
	}
	return a, nil
}

func (a *app) currentSource() datasetSource {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.source
}

// reloadFile 从最近一次成功加载的来源重新加载
func (a *app) reloadFile(reason string) error {
	return a.reloadFrom(a.currentSource(), reason)
}

// reloadFrom 从src加载，成功后src成为之后定时刷新的来源
func (a *app) reloadFrom(src datasetSource, reason string) error {
	t1 := time.Now()
	_, err := a.store.Reload(func() (*file.RawDataset, error) {
		if src.path != "" {
			return a.loader.LoadFile(src.path)
		}
		return a.loader.LoadBytes(src.name, src.data)
	})
	if err != nil {
		a.logger.Event(storage.ERROR, "重新加载失败，继续使用上一份数据", storage.Fields{
			"reason": reason,
			"source": src.String(),
			"error":  err.Error(),
		})
		return err
	}

	a.mu.Lock()
	a.source = src
	a.mu.Unlock()

	a.logger.Event(storage.INFO, "重新加载完成", storage.Fields{
		"reason": reason,
		"source": src.String(),
		"took":   time.Since(t1).String(),
	})
	return nil
}

// checkEmail 查询邮箱，有新的数据集附件时从附件加载
func (a *app) checkEmail(mail email.MailService, handler *email.XLSXAttachmentHandler) error {
	newEmail, err := email.CheckLatestDataset(mail, a.cfg.Email.TargetSubject, emailWindow, a.logger)
	if err != nil {
		a.logger.Error("检查处理邮件失败: " + err.Error())
		return err
	}

	att, err := handler.Handle(newEmail)
	if err != nil {
		a.logger.Error(fmt.Sprintf("处理邮件失败(UID:%d): %v", newEmail.UID, err))
		return err
	}
	if att == nil {
		return nil
	}

	// 附件已落盘时之后按路径刷新
	src := datasetSource{path: att.Path}
	if att.Path == "" {
		src = datasetSource{name: att.Filename, data: att.Content}
	}
	return a.reloadFrom(src, "邮件附件")
}

// pushSummary 发送当前快照的全量摘要
func (a *app) pushSummary() error {
	if a.pusher == nil {
		return nil
	}
	snap, err := a.store.Current()
	if err != nil {
		return err
	}
	d, err := a.store.Dashboard(dashboard.Selection{})
	if err != nil {
		return err
	}
	return a.pusher.Push(d, snap.Result)
}

// schedule 注册定时任务：定时重新加载、日志轮转、邮箱检查、摘要推送
func (a *app) schedule(c *cron.Cron, mail email.MailService) error {
	interval := time.Duration(a.cfg.RefreshInterval).String() // 例如 "15m0s"
	err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		_ = a.reloadFile("定时刷新")
		if err := a.logger.CheckRotate(a.cfg.LogMaxSize); err != nil {
			log.Println("日志轮转失败:", err)
		}
	})
	if err != nil {
		return fmt.Errorf("创建定时任务失败: %w", err)
	}

	if a.cfg.Email.Enabled && mail != nil {
		handler := email.NewXLSXAttachmentHandler(a.cfg.Email.TargetSubject, a.cfg.DataDir, a.logger)
		spec := fmt.Sprintf("@every %s", time.Duration(a.cfg.Email.CheckInterval))
		if err := c.AddFunc(spec, func() { _ = a.checkEmail(mail, handler) }); err != nil {
			return fmt.Errorf("创建邮件检查任务失败: %w", err)
		}
	}

	if a.pusher != nil {
		err := c.AddFunc(a.cfg.SendEmail.Schedule, func() {
			if err := a.pushSummary(); err != nil {
				a.logger.Error("摘要推送失败: " + err.Error())
			}
		})
		if err != nil {
			return fmt.Errorf("创建推送任务失败: %w", err)
		}
	}
	return nil
}

// watch 数据集文件变化时立即重新加载
func (a *app) watch(ctx context.Context) {
	monitor, err := file.NewFileMonitor(a.cfg.DatasetPath)
	if err != nil {
		a.logger.Error("文件监听启动失败: " + err.Error())
		return
	}
	defer monitor.Close()

	err = monitor.Watch(ctx, func(path string) {
		_ = a.reloadFrom(datasetSource{path: path}, "文件变化")
	})
	if err != nil {
		a.logger.Error("文件监听错误: " + err.Error())
	}
}

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()

	a, err := newApp(cfg, dcfg, logger)
	if err != nil {
		logger.Fatal("初始化失败: " + err.Error())
		os.Exit(1)
	}

	// 首次加载失败不退出，接口返回503直到下一次加载成功
	_ = a.reloadFile("启动")

	var mail email.MailService
	if cfg.Email.Enabled {
		mail = email.NewEmailClient(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password, logger)
	}

	c := cron.New()
	if err := a.schedule(c, mail); err != nil {
		logger.Error(err.Error())
		return // 重要错误应该终止程序
	}
	c.Start()
	defer c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Watch {
		go a.watch(ctx)
	}

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: a.handler.Routes()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP服务异常退出: " + err.Error())
			cancel()
		}
	}()
	logger.Event(storage.INFO, "看板服务已启动", storage.Fields{
		"addr":    cfg.HTTP.Addr,
		"dataset": cfg.DatasetPath,
		"refresh": time.Duration(cfg.RefreshInterval).String(),
	})

	waitForShutdown(ctx, a)

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
}

// waitForShutdown SIGHUP重新打开日志并重新加载，SIGINT/SIGTERM退出
func waitForShutdown(ctx context.Context, a *app) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if err := a.logger.Reopen(a.cfg.LogName); err != nil {
					log.Println("重新打开日志失败:", err)
				}
				_ = a.reloadFile("SIGHUP")
				continue
			}
			a.logger.Info("Received signal: " + sig.String() + ", shutting down...")
			return
		}
	}
}
