package metadata

// Metadata 定义了一张简单的键值表，用于持久化少量的运行时元信息。
type Metadata struct {
	Key   string `gorm:"primarykey;type:varchar(64)"`
	Value string `gorm:"type:text"`
}
