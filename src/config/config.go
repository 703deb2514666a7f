package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// 逻辑列名，dataconfig.json 中 columns 的 key
const (
	ColDate            = "date"
	ColIncome          = "income"
	ColExpense         = "expense"
	ColVolume          = "volume_liters"
	ColQuantity        = "quantity"
	ColTransactionType = "transaction_type"
	ColVehiclePlate    = "vehicle_plate"
	ColDriver          = "driver"
	ColOrderLocation   = "order_location"
	ColMonthBucket     = "month_bucket"
	ColLocationName    = "location_name"
	ColLatitude        = "latitude"
	ColLongitude       = "longitude"
)

// 插补策略
const (
	StrategySimilarityThenMode = "similarity_then_mode"
	StrategyDirectUnknownFill  = "direct_unknown_fill"
)

// 插补可见性：snapshot 基于原始快照计算全部填充值后统一写回；
// progressive 逐行写回，后续填充可见先前的结果
const (
	VisibilitySnapshot    = "snapshot"
	VisibilityProgressive = "progressive"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "WTD"

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DatasetPath     string   `json:"dataset_path"`     // 数据集xlsx路径
	DataDir         string   `json:"data_dir"`         // 邮件附件保存目录
	LogName         string   `json:"log_name"`         // 日志文件
	LogMaxSize      string   `json:"log_max_size"`     // 例如 "10 * 1024 * 1024"
	RefreshInterval Duration `json:"refresh_interval"` // 定时重新加载的间隔
	Watch           bool     `json:"watch"`            // 是否监听数据集文件变化

	HTTP struct {
		Addr string `json:"addr"`
	} `json:"http"`

	Email struct {
		Enabled       bool     `json:"enabled"`
		Server        string   `json:"server"`         // IMAP服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Enabled  bool     `json:"enabled"`
		Server   string   `json:"server"` // SMTP服务器地址
		Username string   `json:"username"`
		Password string   `json:"password"`
		To       []string `json:"to"`
		Subject  string   `json:"subject"`
		Schedule string   `json:"schedule"` // cron表达式，例如 "0 0 7 * * *"
	} `json:"send_email"`
}

// DataConfig 数据集的表结构与清洗规则
type DataConfig struct {
	Sheets struct {
		Transactions string `json:"transactions"`
		Locations    string `json:"locations"`
	} `json:"sheets"`

	Columns          map[string]string `json:"columns"`
	Placeholders     []string          `json:"placeholders"`
	UnknownMarker    string            `json:"unknown_marker"`
	Strategy         string            `json:"strategy"`
	Visibility       string            `json:"visibility"`
	DeliveryKeywords []string          `json:"delivery_keywords"`
	TopN             int               `json:"top_n"`
	MaintenanceRate  float64           `json:"maintenance_rate"`
}

// envOverrides 可以通过环境变量覆盖的配置项
type envOverrides struct {
	DatasetPath string `envconfig:"DATASET_PATH"`
	HTTPAddr    string `envconfig:"HTTP_ADDR"`
	LogName     string `envconfig:"LOG_NAME"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

var defaultColumns = map[string]string{
	ColDate:            "Tanggal",
	ColIncome:          "Pemasukan",
	ColExpense:         "Pengeluaran",
	ColVolume:          "Volume (L)",
	ColQuantity:        "Jumlah",
	ColTransactionType: "Jenis Transaksi",
	ColVehiclePlate:    "Plat Nomor",
	ColDriver:          "Sopir",
	ColOrderLocation:   "Order",
	ColMonthBucket:     "Bulan",
	ColLocationName:    "Nama Lokasi",
	ColLatitude:        "Latitude",
	ColLongitude:       "Longitude",
}

// LoadConfig 加载配置，进程内只加载一次
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, nil, err
	}
	cfg.applyDefaults()
	dcfg.applyDefaults()

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// applyEnv 使用 WTD_* 环境变量覆盖配置文件中的值
func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return fmt.Errorf("解析环境变量失败: %w", err)
	}
	if o.DatasetPath != "" {
		cfg.DatasetPath = o.DatasetPath
	}
	if o.HTTPAddr != "" {
		cfg.HTTP.Addr = o.HTTPAddr
	}
	if o.LogName != "" {
		cfg.LogName = o.LogName
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = Duration(10 * time.Minute)
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Email.CheckInterval <= 0 {
		c.Email.CheckInterval = Duration(5 * time.Minute)
	}
	if c.SendEmail.Schedule == "" {
		c.SendEmail.Schedule = "@daily"
	}
}

// DefaultDataConfig 返回与原始数据集一致的默认数据配置
func DefaultDataConfig() *DataConfig {
	dc := &DataConfig{}
	dc.applyDefaults()
	return dc
}

func (dc *DataConfig) applyDefaults() {
	if dc.Sheets.Transactions == "" {
		dc.Sheets.Transactions = "Dataset Keuangan Truk Air Isi U"
	}
	if dc.Sheets.Locations == "" {
		dc.Sheets.Locations = "lokasi"
	}
	if dc.Columns == nil {
		dc.Columns = make(map[string]string, len(defaultColumns))
	}
	for k, v := range defaultColumns {
		if dc.Columns[k] == "" {
			dc.Columns[k] = v
		}
	}
	if dc.UnknownMarker == "" {
		dc.UnknownMarker = "Tidak Diketahui"
	}
	if dc.Placeholders == nil {
		dc.Placeholders = []string{"", "unknown", "tidak diketahui"}
	}
	if dc.Strategy == "" {
		dc.Strategy = StrategySimilarityThenMode
	}
	if dc.Visibility == "" {
		dc.Visibility = VisibilitySnapshot
	}
	if dc.DeliveryKeywords == nil {
		dc.DeliveryKeywords = []string{"Air", "air", "Pengiriman", "pengiriman"}
	}
	if dc.TopN <= 0 {
		dc.TopN = 5
	}
	if dc.MaintenanceRate <= 0 {
		dc.MaintenanceRate = 0.15
	}
}

// Validate 检查策略与可见性的取值
func (dc *DataConfig) Validate() error {
	switch dc.Strategy {
	case StrategySimilarityThenMode, StrategyDirectUnknownFill:
	default:
		return fmt.Errorf("未知的插补策略: %q", dc.Strategy)
	}
	switch dc.Visibility {
	case VisibilitySnapshot, VisibilityProgressive:
	default:
		return fmt.Errorf("未知的插补可见性: %q", dc.Visibility)
	}
	return nil
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Column 返回逻辑列对应的表头名称
func (dc *DataConfig) Column(key string) string {
	mu.RLock()
	defer mu.RUnlock()
	if name, ok := dc.Columns[key]; ok && name != "" {
		return name
	}
	return defaultColumns[key]
}

// SetColumn 修改逻辑列对应的表头名称
func (dc *DataConfig) SetColumn(key, name string) {
	mu.Lock()
	defer mu.Unlock()
	if dc.Columns == nil {
		dc.Columns = make(map[string]string)
	}
	dc.Columns[key] = name
}
