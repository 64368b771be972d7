// leadmailer — отложенная рассылка писем квалифицированным лидам.
//
// Использование:
//
//	leadmailer [--ops-url URL] [--json] <command> [flags]
//
// Команды:
//
//	serve     Диспетчер по таймеру + ops API
//	run-once  Один цикл диспетчера
//	migrate   Миграции Postgres
//	cycle     Циклы на запущенном сервере
//	lead      Квалификация лидов на запущенном сервере
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/leadmailer/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
