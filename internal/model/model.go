package model

// PaperSummary 单篇论文/项目摘要
type PaperSummary struct {
	Title             string `json:"title"`
	Summary           string `json:"summary"`
	Difference        string `json:"difference"`        // 与既有研究的差异点
	Relevance         string `json:"relevance"`         // 相关性标签
	URL               string `json:"url"`
	UpdatedDate       string `json:"updatedDate"`
	CommunityReaction string `json:"communityReaction"` // 社区反响
}

// InfluencerMention 业界人物动态
type InfluencerMention struct {
	InfluencerName string `json:"influencerName"`
	Role           string `json:"role"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	URL            string `json:"url"`
	Date           string `json:"date"`
}

// DeepDive 单篇论文的深度解读
type DeepDive struct {
	Title                string `json:"title"`
	KeyInnovation        string `json:"keyInnovation"`
	DetailedAnalysis     string `json:"detailedAnalysis"`
	HistoricalContext    string `json:"historicalContext"`
	PracticalImplication string `json:"practicalImplication"`
	URL                  string `json:"url"`
}

// DailyReport 每日研究报告。一旦按日期键写入即不可变，
// 仅能通过强制重新生成在同一键下整体覆盖。
type DailyReport struct {
	Date               string              `json:"date"`        // 边界日键，格式 YYYY-MM-DD
	GeneratedAt        int64               `json:"generatedAt"` // 生成时刻，毫秒时间戳，创建时赋值一次
	TopPapers          []PaperSummary      `json:"topPapers"`
	InfluencerMentions []InfluencerMention `json:"influencerMentions"`
	DeepDive           DeepDive            `json:"deepDive"`
}

// Empty 判断生成结果是否为空载荷（无论文且无深度解读）
func (r *DailyReport) Empty() bool {
	return r == nil || (len(r.TopPapers) == 0 && r.DeepDive.Title == "")
}

// Status 同步协调器状态机
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusSearching Status = "SEARCHING" // 缓存/共享存储查找与索引同步
	StatusAnalyzing Status = "ANALYZING" // 正在调用生成器
	StatusCompleted Status = "COMPLETED"
	StatusError     Status = "ERROR"
)
