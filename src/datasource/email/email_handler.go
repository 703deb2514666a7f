// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"WaterTruckDashboard/src/storage"
)

// ====================== 邮件处理器实现 ======================

// XLSXAttachmentHandler 保存目标邮件的xlsx附件，同一封邮件只处理一次
type XLSXAttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录，为空时不落盘
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
	logger        *storage.Logger
}

func NewXLSXAttachmentHandler(subject, dataDir string, logger *storage.Logger) *XLSXAttachmentHandler {
	return &XLSXAttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
		logger:        logger,
	}
}

// isProcessed 检查邮件是否已处理过（线程安全）
func (h *XLSXAttachmentHandler) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *XLSXAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 处理单个邮件，返回其中的xlsx附件；保存到DataDir时附件的Path为本地路径
// 邮件为nil、已处理过、主题不匹配或没有xlsx附件时返回nil
func (h *XLSXAttachmentHandler) Handle(email *Email) (*Attachment, error) {
	if email == nil || h.isProcessed(email.UID) {
		return nil, nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		h.log(storage.DEBUG, "跳过主题不匹配的邮件", email, nil)
		return nil, nil
	}

	att := xlsxAttachment(email)
	if att == nil {
		h.log(storage.WARNING, "目标邮件没有xlsx附件", email, nil)
		return nil, nil
	}

	if h.DataDir != "" {
		if err := os.MkdirAll(h.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("创建目录失败: %w", err)
		}
		filePath := filepath.Join(h.DataDir, filepath.Base(att.Filename))
		if err := os.WriteFile(filePath, att.Content, 0644); err != nil {
			return nil, fmt.Errorf("保存附件失败: %w", err)
		}
		att.Path = filePath
		h.log(storage.INFO, "附件已保存", email, storage.Fields{"path": filePath})
	}

	h.markAsProcessed(email.UID)
	return att, nil
}

func (h *XLSXAttachmentHandler) log(level storage.LogLevel, msg string, email *Email, extra storage.Fields) {
	if h.logger == nil {
		return
	}
	fields := storage.Fields{
		"uid":     email.UID,
		"subject": email.Subject,
		"from":    email.From,
		"date":    email.Date.Format("2006-01-02 15:04:05"),
	}
	for k, v := range extra {
		fields[k] = v
	}
	h.logger.Event(level, msg, fields)
}
