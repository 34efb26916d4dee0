package utils

import "errors"

// 错误类别，调用方通过 errors.Is 判断
var (
	ErrConfig = errors.New("config error") // 参数取值非法
	ErrIO     = errors.New("io error")     // 文件不存在或不可读写
	ErrSchema = errors.New("schema error") // 缺少约定的列或数据无法解析
)
