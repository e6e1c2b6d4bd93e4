package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// デフォルト値
const (
	DefaultScriptInterpreter = "osascript"
	DefaultScriptTimeout     = 60 * time.Second
	DefaultHorizonDays       = 3
	DefaultTimezone          = "Local"
	DefaultListenAddr        = "127.0.0.1:7788"
	DefaultLogLevel          = "INFO"
)

// SSMParameterGetter Parameter Store からパラメータを取得するクライアント
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config アプリケーション設定構造体
type Config struct {
	// スクリプト実行設定
	ScriptInterpreter string        `yaml:"script_interpreter"`
	ScriptTimeout     time.Duration `yaml:"script_timeout"`

	// 一覧取得の対象期間（今日から何日先まで）
	HorizonDays int `yaml:"horizon_days"`
	// 日付グループの計算に使うタイムゾーン。"Local" はOSの設定
	Timezone string `yaml:"timezone"`

	// ローカルHTTP API
	ListenAddr string `yaml:"listen_addr"`

	// LINE ダイジェスト通知設定
	LineChannelAccessToken string `yaml:"line_channel_access_token"`
	LineUserID             string `yaml:"line_user_id"`
	DigestCron             string `yaml:"digest_cron"`

	LogLevel string `yaml:"log_level"`

	ssmClient SSMParameterGetter
}

// Default デフォルト設定を返す
func Default() *Config {
	return &Config{
		ScriptInterpreter: DefaultScriptInterpreter,
		ScriptTimeout:     DefaultScriptTimeout,
		HorizonDays:       DefaultHorizonDays,
		Timezone:          DefaultTimezone,
		ListenAddr:        DefaultListenAddr,
		LogLevel:          DefaultLogLevel,
	}
}

// Load 設定を読み込み
//
// 優先順位: 環境変数（.env を含む） > CALBRIDGE_CONFIG のYAMLファイル > デフォルト値。
// PARAMETER_STORE_PREFIX が設定されている場合、LINE の認証情報は Parameter Store から取得する。
func Load() (*Config, error) {
	// .envファイルが存在しない場合はエラーにしない
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envファイルの読み込みに失敗しました: %w", err)
	}

	cfg := Default()

	if path := getEnvOrDefault("CALBRIDGE_CONFIG", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if prefix := getEnvOrDefault("PARAMETER_STORE_PREFIX", ""); prefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
		if err != nil {
			return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
		}
		cfg.ssmClient = ssm.NewFromConfig(awsCfg)

		if err := cfg.loadFromParameterStore(context.TODO(), prefix); err != nil {
			return nil, fmt.Errorf("Parameter Storeからの設定読み込みに失敗しました: %w", err)
		}
	}

	cfg.normalize()
	return cfg, nil
}

// loadFile YAMLファイルの値で上書き
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイル %s の解析に失敗しました: %w", path, err)
	}
	return nil
}

// applyEnv 環境変数の値で上書き
func (c *Config) applyEnv() error {
	c.ScriptInterpreter = getEnvOrDefault("SCRIPT_INTERPRETER", c.ScriptInterpreter)
	c.Timezone = getEnvOrDefault("TIMEZONE", c.Timezone)
	c.ListenAddr = getEnvOrDefault("LISTEN_ADDR", c.ListenAddr)
	c.LineChannelAccessToken = getEnvOrDefault("LINE_CHANNEL_ACCESS_TOKEN", c.LineChannelAccessToken)
	c.LineUserID = getEnvOrDefault("LINE_USER_ID", c.LineUserID)
	c.DigestCron = getEnvOrDefault("DIGEST_CRON", c.DigestCron)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)

	if v := getEnvOrDefault("SCRIPT_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SCRIPT_TIMEOUTの解析に失敗しました: %w", err)
		}
		c.ScriptTimeout = d
	}
	if v := getEnvOrDefault("HORIZON_DAYS", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HORIZON_DAYSの解析に失敗しました: %w", err)
		}
		c.HorizonDays = n
	}
	return nil
}

// normalize 未設定・不正な値をデフォルト値に戻す
func (c *Config) normalize() {
	if c.ScriptInterpreter == "" {
		c.ScriptInterpreter = DefaultScriptInterpreter
	}
	if c.ScriptTimeout <= 0 {
		c.ScriptTimeout = DefaultScriptTimeout
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Location 表示タイムゾーンを返す
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("タイムゾーン %s の読み込みに失敗しました: %w", c.Timezone, err)
	}
	return loc, nil
}

// LineEnabled LINE 通知に必要な設定が揃っているか
func (c *Config) LineEnabled() bool {
	return c.LineChannelAccessToken != "" && c.LineUserID != ""
}

// loadFromParameterStore Parameter StoreからLINEの認証情報を読み込み
func (c *Config) loadFromParameterStore(ctx context.Context, prefix string) error {
	prefix = strings.TrimRight(prefix, "/")

	lineToken, err := c.getParameter(ctx, prefix+"/line-channel-access-token", true)
	if err != nil {
		return fmt.Errorf("LINE Channel Access Tokenの取得に失敗しました: %w", err)
	}
	c.LineChannelAccessToken = lineToken

	lineUser, err := c.getParameter(ctx, prefix+"/line-user-id", true)
	if err != nil {
		return fmt.Errorf("LINE User IDの取得に失敗しました: %w", err)
	}
	c.LineUserID = lineUser

	return nil
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %w", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("パラメータ %s が空です", paramName)
	}

	return *result.Parameter.Value, nil
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
