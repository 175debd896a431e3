package main

import (
	"os"

	"github.com/altair-render/altair/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "altair"
	app.Usage = "trace rays against quad and hair scenes"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render an ambient occlusion frame of the demo scene",
			Description: `
Build the procedural demo scene (ground plane, quad-meshed sphere and a hair
tuft), compile its acceleration structure and render an ambient occlusion
frame using one intersector per CPU core.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "ao-samples",
					Value: 16,
					Usage: "occlusion samples per pixel",
				},
				cli.IntFlag{
					Name:  "hair",
					Value: 256,
					Usage: "number of hair segments",
				},
				cli.Float64Flag{
					Name:  "orbit",
					Value: 0,
					Usage: "camera orbit angle in degrees",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			},
			Action: cmd.RenderFrame,
		},
		{
			Name:  "info",
			Usage: "print acceleration structure statistics for the demo scene",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "hair",
					Value: 256,
					Usage: "number of hair segments",
				},
			},
			Action: cmd.SceneInfo,
		},
	}

	app.Run(os.Args)
}
