package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName — имя инструментирующей библиотеки.
const TracerName = "github.com/shaiso/leadmailer"

// Tracer возвращает tracer глобального провайдера.
// Без настроенного экспортёра spans ничего не стоят (noop provider).
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
