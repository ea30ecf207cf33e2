package retcode

// 业务码表：正值成功，负值失败（沿用旧后台的返回码习惯）
const (
	SUCCESS          = 1
	INVALID          = -1
	DB_SAVE_ERROR    = -2
	DB_READ_ERROR    = -3
	CACHE_SAVE_ERROR = -4
	CACHE_READ_ERROR = -5
	LOGIN_ERROR      = -7
	NOT_EXISTS       = -8
	JSON_PARSE_FAIL  = -9
	EMPTY_PARAMS     = -12
	DATA_EXISTS      = -13
	AUTH_ERROR       = -14
	RECORD_NOT_FOUND = -19
	DELETE_FAILED    = -20
	ADD_FAILED       = -21
	UPDATE_FAILED    = -22

	// 租户与访问控制
	TENANT_REQUIRED      = -30
	TENANT_DISABLED      = -31
	SUBSCRIPTION_EXPIRED = -32
	CONTEXT_REQUIRED     = -33
	CROSS_TENANT         = -34
	QUOTA_EXCEEDED       = -35
	CIRCULAR_INHERIT     = -40
	ROLE_IN_USE          = -41
	ROLE_HAS_CHILDREN    = -42
	ROLE_SYSTEM_SEEDED   = -43
	MENU_HAS_CHILDREN    = -44

	PARAM_INVALID        = -995
	ACCESS_TOKEN_TIMEOUT = -996
	UNKNOWN              = -998
	EXCEPTION            = -999
)

type CodeInfo struct {
	Code    int
	Message string
}

func All() map[string]CodeInfo {
	return map[string]CodeInfo{
		"SUCCESS":              {SUCCESS, "请求成功"},
		"INVALID":              {INVALID, "非法操作"},
		"DB_SAVE_ERROR":        {DB_SAVE_ERROR, "数据存储失败"},
		"DB_READ_ERROR":        {DB_READ_ERROR, "数据读取失败"},
		"CACHE_SAVE_ERROR":     {CACHE_SAVE_ERROR, "缓存存储失败"},
		"CACHE_READ_ERROR":     {CACHE_READ_ERROR, "缓存读取失败"},
		"LOGIN_ERROR":          {LOGIN_ERROR, "登录失败"},
		"NOT_EXISTS":           {NOT_EXISTS, "不存在"},
		"JSON_PARSE_FAIL":      {JSON_PARSE_FAIL, "JSON数据格式错误"},
		"EMPTY_PARAMS":         {EMPTY_PARAMS, "丢失必要数据"},
		"DATA_EXISTS":          {DATA_EXISTS, "数据已经存在"},
		"AUTH_ERROR":           {AUTH_ERROR, "权限认证失败"},
		"RECORD_NOT_FOUND":     {RECORD_NOT_FOUND, "记录未找到"},
		"DELETE_FAILED":        {DELETE_FAILED, "删除失败"},
		"ADD_FAILED":           {ADD_FAILED, "添加记录失败"},
		"UPDATE_FAILED":        {UPDATE_FAILED, "更新记录失败"},
		"TENANT_REQUIRED":      {TENANT_REQUIRED, "无法确定租户上下文"},
		"TENANT_DISABLED":      {TENANT_DISABLED, "租户已被禁用"},
		"SUBSCRIPTION_EXPIRED": {SUBSCRIPTION_EXPIRED, "租户订阅已过期"},
		"CONTEXT_REQUIRED":     {CONTEXT_REQUIRED, "操作需要租户上下文"},
		"CROSS_TENANT":         {CROSS_TENANT, "跨租户引用"},
		"QUOTA_EXCEEDED":       {QUOTA_EXCEEDED, "超出租户配额"},
		"CIRCULAR_INHERIT":     {CIRCULAR_INHERIT, "角色循环继承"},
		"ROLE_IN_USE":          {ROLE_IN_USE, "角色正在被用户使用"},
		"ROLE_HAS_CHILDREN":    {ROLE_HAS_CHILDREN, "角色存在子角色"},
		"ROLE_SYSTEM_SEEDED":   {ROLE_SYSTEM_SEEDED, "系统预定义角色不能删除"},
		"MENU_HAS_CHILDREN":    {MENU_HAS_CHILDREN, "菜单存在子菜单"},
		"PARAM_INVALID":        {PARAM_INVALID, "数据类型非法"},
		"ACCESS_TOKEN_TIMEOUT": {ACCESS_TOKEN_TIMEOUT, "身份令牌过期"},
		"UNKNOWN":              {UNKNOWN, "未知错误"},
		"EXCEPTION":            {EXCEPTION, "系统异常"},
	}
}
