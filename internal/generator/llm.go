package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/research_radar/internal/config"
	"github.com/iWorld-y/research_radar/internal/logger"
	"github.com/iWorld-y/research_radar/internal/model"
	"github.com/iWorld-y/research_radar/internal/search"
	"github.com/iWorld-y/research_radar/internal/search/factory"
)

// defaultTopics 未配置 topics 时的检索主题
var defaultTopics = []string{
	"on-device LLM quantization pruning distillation",
	"llama.cpp MLC-LLM BitNet local inference framework",
	"FlashAttention KV cache optimization edge devices",
	"small language models Phi Gemma Llama on-device",
}

const defaultLookbackDays = 45

// LLMGenerator 基于"搜索 + 正文抽取 + 结构化输出"流水线的报告生成器
type LLMGenerator struct {
	cfg       *config.Config
	chatModel einomodel.ChatModel
	searcher  search.Searcher
	limiter   *rate.Limiter
}

var _ Generator = (*LLMGenerator)(nil)

// NewLLMGenerator 创建 LLM 生成器实例
func NewLLMGenerator(cfg *config.Config) (*LLMGenerator, error) {
	ctx := context.Background()

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	searcher, err := factory.NewSearcher(&cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}

	limit := rate.Limit(float64(cfg.Concurrency.RPM) / 60.0)
	limiter := rate.NewLimiter(limit, cfg.Concurrency.QPS)

	return &LLMGenerator{
		cfg:       cfg,
		chatModel: chatModel,
		searcher:  searcher,
		limiter:   limiter,
	}, nil
}

// Generate 生成一份每日研究报告。所有 I/O 顺序执行，不做并行扇出。
func (g *LLMGenerator) Generate(ctx context.Context) (*model.DailyReport, error) {
	topics := g.cfg.Radar.Topics
	if len(topics) == 0 {
		topics = defaultTopics
	}
	lookback := g.cfg.Radar.LookbackDays
	if lookback <= 0 {
		lookback = defaultLookbackDays
	}

	now := time.Now()
	endDate := now.Format(time.DateOnly)
	startDate := now.AddDate(0, 0, -lookback).Format(time.DateOnly)

	// 1. 逐主题搜索并收集可用素材
	var corpus []search.Result
	for _, topic := range topics {
		req := &search.Request{
			Query:      topic,
			Topic:      "news",
			MaxResults: 10,
			StartDate:  startDate,
			EndDate:    endDate,
		}

		resp, err := g.searcher.Search(ctx, req)
		if err != nil {
			logger.Log.Errorf("搜索主题失败 [%s]: %v", topic, err)
			continue
		}

		kept := 0
		for _, item := range resp.Results {
			content := item.Content
			if len(content) < 500 {
				fetched, err := fetchAndCleanContent(item.URL)
				if err == nil && len(fetched) > len(content) {
					content = fetched
				}
			}
			if len(content) > 5000 {
				content = content[:5000]
			}
			if len(content) < 100 {
				continue
			}
			item.Content = content
			corpus = append(corpus, item)
			kept++
			if kept >= 6 {
				break
			}
		}
	}

	if len(corpus) == 0 {
		return nil, fmt.Errorf("no usable search results for report generation")
	}

	// 2. 结构化生成
	report, err := g.synthesize(ctx, corpus)
	if err != nil {
		return nil, err
	}
	if report.Empty() {
		return nil, fmt.Errorf("generator returned empty payload")
	}
	return report, nil
}

const reportPrompt = `你是一位资深 AI 研究分析师。请基于提供的搜索素材，撰写一份"On-device AI / On-device LLM"方向的每日研究雷达报告。
请务必严格按照以下 JSON 格式返回，不要包含任何 markdown 标记：
{
	"topPapers": [{
		"title": "论文或项目标题",
		"summary": "核心内容摘要（100字左右）",
		"difference": "与既有研究的差异点",
		"relevance": "相关性标签，如 量化 / 推理框架 / 小模型",
		"url": "来源链接",
		"updatedDate": "YYYY-MM-DD",
		"communityReaction": "社区反响简述"
	}],
	"influencerMentions": [{
		"influencerName": "人物姓名",
		"role": "头衔/所属机构",
		"title": "动态标题",
		"summary": "动态摘要",
		"url": "来源链接",
		"date": "YYYY-MM-DD"
	}],
	"deepDive": {
		"title": "深度解读对象标题",
		"keyInnovation": "核心创新点",
		"detailedAnalysis": "详细分析（Markdown 格式，500字左右）",
		"historicalContext": "既有研究脉络",
		"practicalImplication": "工程落地含义",
		"url": "来源链接"
	}
}
要求：
- topPapers 选取不超过 10 条最值得关注的论文/项目。
- influencerMentions 精选恰好 2 条业界重要人物的相关动态。
- deepDive 针对其中影响力最大的单篇展开。
- 所有内容使用中文。`

// synthesize 将素材交给 LLM 做结构化输出，429 时指数退避重试
func (g *LLMGenerator) synthesize(ctx context.Context, corpus []search.Result) (*model.DailyReport, error) {
	var sb strings.Builder
	sb.WriteString("以下是近期的搜索素材：\n\n")
	for i, item := range corpus {
		fmt.Fprintf(&sb, "素材 %d:\n标题: %s\n链接: %s\n发布日期: %s\n内容: %s\n\n",
			i+1, item.Title, item.URL, item.PublishedDate, item.Content)
	}

	maxRetries := 3
	baseDelay := 2 * time.Second
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		messages := []*schema.Message{
			{Role: schema.System, Content: "你是一个 JSON 生成器。请只输出 JSON 字符串。"},
			{Role: schema.User, Content: sb.String() + "\n\n" + reportPrompt},
		}

		resp, err := g.chatModel.Generate(ctx, messages)
		if err != nil {
			if strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "too many requests") {
				lastErr = err
				if i < maxRetries {
					time.Sleep(baseDelay * time.Duration(1<<i))
					continue
				}
			}
			return nil, err
		}

		report, err := parseReportJSON(resp.Content)
		if err != nil {
			lastErr = err
			if i < maxRetries {
				continue
			}
			return nil, err
		}
		return report, nil
	}
	return nil, lastErr
}

// parseReportJSON 剥除可能的代码栅栏后解析报告 JSON
func parseReportJSON(content string) (*model.DailyReport, error) {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var report model.DailyReport
	if err := json.Unmarshal([]byte(clean), &report); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return &report, nil
}

// fetchAndCleanContent 抓取页面并抽取正文
func fetchAndCleanContent(url string) (string, error) {
	article, err := readability.FromURL(url, 30*time.Second)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
