package configs

// AppName 应用名称，用于日志、追踪与对象存储 AppInfo.
const AppName = "gradevault"

// AppVersion 应用版本，构建时可通过 -ldflags "-X" 覆盖.
var AppVersion = "0.1.0"
