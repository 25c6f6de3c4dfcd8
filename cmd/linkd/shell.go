package main

import (
	"context"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/linkdrv/pkg/runtime"
)

func newShell(links *linkTable) *ishell.Shell {
	sh := ishell.New()
	sh.SetPrompt("linkd> ")
	sh.AddCmd(&ishell.Cmd{
		Name:    "links",
		Aliases: []string{"ls"},
		Help:    "list links",
		Func: func(c *ishell.Context) {
			for _, line := range links.list() {
				c.Println(line)
			}
		},
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "send",
		Help: "send BUS TEXT",
		Func: func(c *ishell.Context) {
			if err := links.sendText(c.Args); err != nil {
				c.Err(err)
			}
		},
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "sendhex",
		Help: "send BUS HEX",
		Func: func(c *ishell.Context) {
			if err := links.sendHex(c.Args); err != nil {
				c.Err(err)
			}
		},
	})
	return sh
}

// shellRunner runs the shell until the user exits, then calls done.
func shellRunner(sh *ishell.Shell, done func()) runtime.Runnable {
	return runtime.NamedRun("shell", runtime.RunFunc(func(ctx context.Context) error {
		return runtime.RunWithContextCancel(ctx, sh.Stop, func() error {
			sh.Run()
			done()
			return nil
		})
	}))
}
