package main

import (
	"log"

	"github.com/rkoshiba/wxforensic/cmd/wxforensic"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	wxforensic.Execute()
}
