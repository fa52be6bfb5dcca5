package main

import (
	"go.uber.org/fx"

	"github.com/robalobadob/countryle/internal/app"
)

func main() {
	fx.New(
		app.Module,
		fx.Invoke(app.Run),
	).Run()
}
