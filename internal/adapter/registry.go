package adapter

import (
	"GigScout/internal/config"
	"GigScout/internal/interfaces"
	"GigScout/internal/model"
	"fmt"

	"github.com/sirupsen/logrus"
)

// BotRegistry 有序的bot实例列表，扫描编排按此顺序执行
type BotRegistry struct {
	logger *logrus.Logger
	bots   []interfaces.ScoutBot
	byName map[model.BotName]interfaces.ScoutBot
}

// NewBotRegistry 按 DefaultOrder 从工厂注册表创建bot实例；enabled 为空时启用全部已注册bot
func NewBotRegistry(cfg *config.Config, enabled []string, logger *logrus.Logger) *BotRegistry {
	r := &BotRegistry{
		logger: logger,
		byName: make(map[model.BotName]interfaces.ScoutBot),
	}

	allow := make(map[string]bool, len(enabled))
	for _, n := range enabled {
		allow[n] = true
	}

	for _, name := range ListFactories() {
		if len(allow) > 0 && !allow[name] {
			r.logger.WithField("bot", name).Info("bot未启用，跳过")
			continue
		}
		factory, _ := GetFactory(name)
		botCfg := cfg.Bot(name)
		bot := factory(&botCfg, logger)
		if bot == nil {
			r.logger.WithField("bot", name).Error("工厂函数返回nil实例")
			continue
		}
		if bot.Name() != name {
			r.logger.WithFields(logrus.Fields{
				"registered": name,
				"bot":        bot.Name(),
			}).Error("bot名称与注册名不一致")
			continue
		}
		r.add(bot)
	}

	r.logger.WithField("bots", r.Names()).Info("bot注册表初始化完成")
	return r
}

// NewStaticRegistry 直接用给定的bot列表构建注册表（顺序即执行顺序）
func NewStaticRegistry(logger *logrus.Logger, bots ...interfaces.ScoutBot) *BotRegistry {
	r := &BotRegistry{logger: logger, byName: make(map[model.BotName]interfaces.ScoutBot)}
	for _, b := range bots {
		r.add(b)
	}
	return r
}

func (r *BotRegistry) add(bot interfaces.ScoutBot) {
	if _, dup := r.byName[bot.Name()]; dup {
		r.logger.WithField("bot", bot.Name()).Warn("bot重复注册，忽略")
		return
	}
	r.bots = append(r.bots, bot)
	r.byName[bot.Name()] = bot
}

// Bots 返回有序bot列表的副本
func (r *BotRegistry) Bots() []interfaces.ScoutBot {
	out := make([]interfaces.ScoutBot, len(r.bots))
	copy(out, r.bots)
	return out
}

// Names 返回有序bot名称
func (r *BotRegistry) Names() []string {
	names := make([]string, 0, len(r.bots))
	for _, b := range r.bots {
		names = append(names, b.Name())
	}
	return names
}

// Get 获取指定名称的bot实例
func (r *BotRegistry) Get(name string) (interfaces.ScoutBot, error) {
	bot, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("bot %s 未初始化（已初始化：%v）", name, r.Names())
	}
	return bot, nil
}

// Count 已初始化bot数量
func (r *BotRegistry) Count() int {
	return len(r.bots)
}
