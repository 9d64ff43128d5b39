// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 通用错误类型
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeError      ErrorType = "processing_error"
	ErrorTypeTimeout    ErrorType = "timeout"

	// 转换流水线专用错误类型
	ErrorTypeTemplateNotLoaded ErrorType = "template_not_loaded" // 必需的prompt模板未加载，任务级致命错误
	ErrorTypeExtractionFailed  ErrorType = "extraction_failed"   // 重试一次后仍失败，按单元跳过
	ErrorTypeParseFailed       ErrorType = "parse_failed"        // 响应解析不出可用结构，按单元跳过
	ErrorTypeRoleFormat        ErrorType = "role_format_invalid" // 角色数据形状异常，角色集按空处理
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError 创建处理错误
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewTemplateNotLoadedError 创建模板未加载错误
func NewTemplateNotLoadedError(message string) *AppError {
	return NewAppError(ErrorTypeTemplateNotLoaded, message, nil)
}

// NewExtractionFailedError 创建提取失败错误
func NewExtractionFailedError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeExtractionFailed, message, originalError)
}

// NewParseFailedError 创建解析失败错误
func NewParseFailedError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeParseFailed, message, originalError)
}

// NewRoleFormatError 创建角色格式错误
func NewRoleFormatError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeRoleFormat, message, originalError)
}

// IsType 检查错误是否属于指定类型
func IsType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

// IsTemplateNotLoaded 检查是否为模板未加载错误
func IsTemplateNotLoaded(err error) bool {
	return IsType(err, ErrorTypeTemplateNotLoaded)
}

// IsParseFailed 检查是否为解析失败错误
func IsParseFailed(err error) bool {
	return IsType(err, ErrorTypeParseFailed)
}

// IsRoleFormatInvalid 检查是否为角色格式错误
func IsRoleFormatInvalid(err error) bool {
	return IsType(err, ErrorTypeRoleFormat)
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeTemplateNotLoaded:
		return "TEMPLATE_NOT_LOADED"
	case ErrorTypeExtractionFailed:
		return "EXTRACTION_FAILED"
	case ErrorTypeParseFailed:
		return "PARSE_FAILED"
	case ErrorTypeRoleFormat:
		return "ROLE_FORMAT_INVALID"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
