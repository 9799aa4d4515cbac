package user

// 定义与投票者相关的Redis键名
const (
	// KnownVotersKey 是一个Set，用于快速查找一个UUID是否是已知的、已激活的投票者。
	// Key: known_voters
	// Member: Voter UUID (e.g., "018f4e2a-....")
	KnownVotersKey = "known_voters"
)
