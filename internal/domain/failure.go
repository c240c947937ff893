package domain

// FailureReason - типизированный код "осечки" действия.
// Это ОЖИДАЕМЫЕ, нарративные исходы, а не ошибки Go: они записываются
// в журнал попыток и видны актору в следующем наблюдении.
type FailureReason string

const (
	FailureNone FailureReason = ""
	// Цель отсутствует или не видна актору
	FailureNoTarget FailureReason = "NO_TARGET"
	// Ни один рецепт не подошел под (verb, target)
	FailureNoRecipe FailureReason = "NO_RECIPE"
	// Теги цели / компоненты актора не удовлетворяют предикатам рецепта
	FailurePreconditionFailed FailureReason = "PRECONDITION_FAILED"
	// Параметры не прошли схему рецепта
	FailureParamInvalid FailureReason = "PARAM_INVALID"
	// У актора уже есть активная задача
	FailureOccupied FailureReason = "OCCUPIED"
)

// Narrative - человекочитаемая расшифровка (для рендера наблюдений)
func (r FailureReason) Narrative() string {
	switch r {
	case FailureNoTarget:
		return "цель не найдена"
	case FailureNoRecipe:
		return "нет подходящего правила взаимодействия"
	case FailurePreconditionFailed:
		return "условия не выполнены"
	case FailureParamInvalid:
		return "неверные параметры"
	case FailureOccupied:
		return "актор занят другой задачей"
	}
	return string(r)
}
