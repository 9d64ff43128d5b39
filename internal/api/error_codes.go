// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"

	// 上传相关错误
	ErrorUploadFailed      = "UPLOAD_FAILED"
	ErrorUnsupportedFormat = "UNSUPPORTED_FORMAT"

	// 转换相关错误
	ErrorTaskNotFound      = "TASK_NOT_FOUND"
	ErrorSourceNotFound    = "SOURCE_NOT_FOUND"
	ErrorTemplateNotLoaded = "TEMPLATE_NOT_LOADED"
	ErrorResultNotReady    = "RESULT_NOT_READY"

	// 设置相关错误
	ErrorSettingsInvalid = "SETTINGS_INVALID"
	ErrorProviderInvalid = "PROVIDER_INVALID"
)
