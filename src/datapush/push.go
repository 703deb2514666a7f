package datapush

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"WaterTruckDashboard/src/config"
	"WaterTruckDashboard/src/dashboard"
	"WaterTruckDashboard/src/processor"
	"WaterTruckDashboard/src/storage"

	"github.com/jordan-wright/email"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultSubject  = "Ringkasan Dashboard Truk Air"
	RETRY_TIMES     = 3
	RETRY_INTERVAL  = 2 * time.Second
)

// SendFunc 发送一封邮件，默认使用显式TLS
type SendFunc func(e *email.Email, addr string, auth smtp.Auth, t *tls.Config) error

// Pusher 通过SMTP发送看板摘要
type Pusher struct {
	server   string
	username string
	password string
	to       []string
	subject  string
	send     SendFunc
	interval time.Duration
	archive  string // 发送前在此目录保存一份附件，为空时不保存
	logger   *storage.Logger
}

func NewPusher(cfg *config.Config, logger *storage.Logger) *Pusher {
	subject := cfg.SendEmail.Subject
	if subject == "" {
		subject = defaultSubject
	}
	return &Pusher{
		server:   cfg.SendEmail.Server,
		username: cfg.SendEmail.Username,
		password: cfg.SendEmail.Password,
		to:       cfg.SendEmail.To,
		subject:  subject,
		send: func(e *email.Email, addr string, auth smtp.Auth, t *tls.Config) error {
			return e.SendWithTLS(addr, auth, t)
		},
		interval: RETRY_INTERVAL,
		archive:  cfg.DataDir,
		logger:   logger,
	}
}

// Message 组装摘要邮件，附件为xlsx工作簿
func (p *Pusher) Message(d *dashboard.Dashboard, res *processor.Result) (*email.Email, error) {
	if d == nil || res == nil {
		return nil, fmt.Errorf("没有可发送的看板数据")
	}
	if len(p.to) == 0 {
		return nil, fmt.Errorf("未配置收件人")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("Dashboard Truk Air <%s>", p.username)
	e.To = p.to
	e.Subject = fmt.Sprintf("%s %s", p.subject, res.CleanedAt.Format("2006-01-02"))
	e.Text = []byte(BuildText(d, res))
	name := workbookName(res)

	data, err := BuildWorkbook(d, res)
	if err != nil {
		return nil, fmt.Errorf("生成附件失败: %w", err)
	}
	if _, err := e.Attach(bytes.NewReader(data), name, xlsxContentType); err != nil {
		return nil, fmt.Errorf("附件添加失败: %w", err)
	}
	return e, nil
}

func workbookName(res *processor.Result) string {
	return fmt.Sprintf("ringkasan_%s.xlsx", res.CleanedAt.Format("20060102_150405"))
}

// Push 发送摘要，失败时按间隔重试
func (p *Pusher) Push(d *dashboard.Dashboard, res *processor.Result) error {
	e, err := p.Message(d, res)
	if err != nil {
		return err
	}
	p.saveCopy(d, res)

	// 确保服务器地址包含端口
	smtpAddr := p.server
	if !strings.Contains(smtpAddr, ":") {
		smtpAddr += ":465" // 默认 SSL 端口
	}
	host := strings.Split(smtpAddr, ":")[0]
	auth := smtp.PlainAuth("", p.username, p.password, host)

	err = retry(func() error {
		return p.send(e, smtpAddr, auth, &tls.Config{ServerName: host})
	}, RETRY_TIMES, p.interval)
	if err != nil {
		p.log(storage.ERROR, "摘要邮件发送失败", storage.Fields{"server": smtpAddr, "error": err.Error()})
		return fmt.Errorf("邮件发送失败: %w (Server: %s)", err, smtpAddr)
	}
	p.log(storage.INFO, "摘要邮件发送成功", storage.Fields{"server": smtpAddr, "to": strings.Join(p.to, ",")})
	return nil
}

// saveCopy 保存附件副本，失败只记录日志不影响发送
func (p *Pusher) saveCopy(d *dashboard.Dashboard, res *processor.Result) {
	if p.archive == "" {
		return
	}
	path := filepath.Join(p.archive, workbookName(res))
	err := os.MkdirAll(p.archive, 0755)
	if err == nil {
		err = SaveWorkbook(path, d, res)
	}
	if err != nil {
		p.log(storage.WARNING, "摘要副本保存失败", storage.Fields{"path": path, "error": err.Error()})
		return
	}
	p.log(storage.INFO, "摘要副本已保存", storage.Fields{"path": path})
}

func (p *Pusher) log(level storage.LogLevel, msg string, fields storage.Fields) {
	if p.logger != nil {
		p.logger.Event(level, msg, fields)
	}
}

// 重试机制
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return err
}
