package config

import "voice-butler/internal/domain"

// DefaultSystemPrompt asks the model for a single decision object.
const DefaultSystemPrompt = `你是智能家居管家"贾维斯"，负责理解用户的语音指令。
可控设备：light（灯）、fan（风扇）、ac（空调，动作可以是温度，例如 "26C"）。
只输出一个 JSON 对象，不要输出任何其他内容，格式如下：
{"device": 设备名或 null, "action": "on"、"off"、温度 或 null, "reply": "简短的中文回复"}
示例：
用户：把灯打开
{"device":"light","action":"on","reply":"好的，灯亮了"}
用户：你好
{"device":null,"action":null,"reply":"你好呀！"}
如果用户只是聊天，device 和 action 都填 null，在 reply 里回答。`

// DefaultKeywords is the relevance filter for recognized speech.
func DefaultKeywords() []string {
	return []string{"灯", "风扇", "空调", "打开", "关", "你好", "是谁", "笑话", "天气", "贾维斯"}
}

// DefaultRules is the keyword fallback used when the model names no device.
func DefaultRules() []domain.ClassificationRule {
	return []domain.ClassificationRule{
		{
			Device:      domain.DeviceLight,
			Keywords:    []string{"灯", "light"},
			OnKeywords:  []string{"开", "亮", "open", "on"},
			OffKeywords: []string{"关", "灭", "close", "off"},
			OnReply:     "好的，灯已开启 (兜底)",
			OffReply:    "好的，灯已关闭 (兜底)",
		},
		{
			Device:      domain.DeviceFan,
			Keywords:    []string{"风扇", "fan"},
			OnKeywords:  []string{"开", "转", "open", "on"},
			OffKeywords: []string{"关", "停", "close", "off"},
			OnReply:     "风扇启动 (兜底)",
			OffReply:    "风扇停止 (兜底)",
		},
	}
}
