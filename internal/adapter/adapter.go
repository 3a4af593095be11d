package adapter

import (
	"GigScout/internal/config"
	"GigScout/internal/interfaces"
	"GigScout/internal/model"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Factory 信号源bot工厂函数签名
// 入参：bot配置、日志实例
// 出参：实现ScoutBot接口的bot实例
type Factory func(cfg *config.BotConfig, logger *logrus.Logger) interfaces.ScoutBot

// ========== 全局工厂函数注册表 ==========
var factoryRegistry = make(map[model.BotName]Factory)

// DefaultOrder bot的固定执行顺序
var DefaultOrder = []model.BotName{
	model.BotReddit,
	model.BotGoogleTrends,
	model.BotX,
	model.BotHackerNews,
	model.BotProductHunt,
}

// Register 供各bot包init函数调用，注册工厂函数
func Register(name model.BotName, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("bot %s 的工厂函数不能为nil", name))
	}
	if _, exists := factoryRegistry[name]; exists {
		logrus.Warnf("bot %s 已注册，将覆盖原有实现", name)
	}
	factoryRegistry[name] = factory
}

// GetFactory 获取指定bot的工厂函数
func GetFactory(name model.BotName) (Factory, bool) {
	factory, ok := factoryRegistry[name]
	return factory, ok
}

// ListFactories 按固定顺序列出已注册的bot，未在 DefaultOrder 中的排在最后
func ListFactories() []model.BotName {
	var names []model.BotName
	seen := make(map[model.BotName]bool)
	for _, n := range DefaultOrder {
		if _, ok := factoryRegistry[n]; ok {
			names = append(names, n)
			seen[n] = true
		}
	}
	var extra []model.BotName
	for n := range factoryRegistry {
		if !seen[n] {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}
