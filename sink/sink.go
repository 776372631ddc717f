package sink

// Sink 转换结果的输出端
// 调用方必须在结束时调用 Close（提交）或 Abort（放弃）之一
type Sink interface {
	// Comment 输出一行注释，text 不含注释符号
	Comment(text string) error

	// Statement 输出一条完整的 SQL 语句
	Statement(stmt string) error

	// Blank 输出一个空行
	Blank() error

	// Close 提交已写入的内容并释放资源
	Close() error

	// Abort 放弃已写入的内容并释放资源
	Abort() error
}
