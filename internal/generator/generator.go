// Package generator 定义报告生成器的能力接口及其基于 LLM 的实现。
// 协调器只依赖接口，便于用确定性桩件进行测试。
package generator

import (
	"context"

	"github.com/iWorld-y/research_radar/internal/model"
)

// Generator 报告生成能力接口：无输入，最终返回一份 DailyReport 或失败。
// 返回结果中的 Date 与 GeneratedAt 由协调器统一盖戳，生成器不负责。
type Generator interface {
	Generate(ctx context.Context) (*model.DailyReport, error)
}
