package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/Hoblovski/rCore-Tutorial-Guide/boundary"
	"github.com/Hoblovski/rCore-Tutorial-Guide/kernel"
	clog "github.com/Hoblovski/rCore-Tutorial-Guide/log"
	"github.com/Hoblovski/rCore-Tutorial-Guide/syscalls"
)

var (
	fImage = pflag.StringP("image", "i", "init", "program image to boot")
	fList  = pflag.BoolP("list", "l", false, "list available images")
)

func main() {
	pflag.Parse()

	clog.EnableDebug()

	reg := boundary.NewRegistry()
	registerImages(reg)

	if *fList {
		for _, name := range imageNames {
			fmt.Println(name)
		}
		return
	}

	k, err := kernel.NewKernel(reg)
	if err != nil {
		log.Fatal(err)
	}

	machine := &boundary.Machine{
		L: clog.L,
		Invoker: &syscalls.Invoker{
			Kernel: k,
		},
	}

	k.SetRunner(machine)

	proc, err := k.InitProcess(context.Background(), *fImage)
	if err != nil {
		log.Fatal(err)
	}

	k.StartProcess(proc)

	machine.Wait()

	if proc.ExitStatus().Code != 0 {
		os.Exit(1)
	}
}
