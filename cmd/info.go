package cmd

import "github.com/urfave/cli"

// Compile the demo scene and print its statistics.
func SceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, err := buildDemoScene(ctx.Int("hair"))
	if err != nil {
		return err
	}

	logger.Noticef("scene statistics\n%s", sc.Stats())
	return nil
}
