package bot

import "tradebot/internal/models"

// ValidTransitions определяет допустимые переходы статусов бота
var ValidTransitions = map[string][]string{
	models.BotStatusIdle:    {models.BotStatusRunning},
	models.BotStatusRunning: {models.BotStatusPaused, models.BotStatusError},
	models.BotStatusPaused:  {models.BotStatusRunning, models.BotStatusIdle},
	models.BotStatusError:   {models.BotStatusIdle}, // только ручной сброс
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StatusInfo возвращает описание статуса для UI
func StatusInfo(s string) string {
	switch s {
	case models.BotStatusIdle:
		return "Бот создан, не запускался"
	case models.BotStatusRunning:
		return "Бот участвует в торговых циклах"
	case models.BotStatusPaused:
		return "Новые входы запрещены, открытые позиции сопровождаются"
	case models.BotStatusError:
		return "Ошибка! Требуется вмешательство"
	default:
		return "Неизвестный статус"
	}
}

// KeepsManagingExits возвращает true, если в этом статусе открытые
// позиции продолжают сопровождаться. Риск-менеджмент открытой позиции
// не бросается никогда, кроме терминальной ошибки.
func KeepsManagingExits(s string) bool {
	return s == models.BotStatusRunning || s == models.BotStatusPaused
}
