// internal/config/constants.go
package config

// アプリケーション情報
const (
	AppName    = "course-progress-engine"
	AppVersion = "1.0.0"
)

// デフォルト設定値
const (
	DefaultServerPort          = ":8080"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "json"
	DefaultCompletionThreshold = 80

	DefaultVirtualThreshold  = 80
	DefaultCompleteThreshold = 70
	DefaultInteractiveWeight = 50
	DefaultActivitiesWeight  = 50
)
