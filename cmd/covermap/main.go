// Command covermap renders an HTML heatmap of the cover a target enjoys
// from every grid cell of a scene, for tuning thresholds and comparing
// strategies offline.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	_ "modernc.org/sqlite"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/config"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/cover"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/geom"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/scene"
)

var (
	dbPath    = flag.String("db", "cover.db", "Path to sqlite database")
	sceneID   = flag.String("scene", "", "Scene ID")
	targetID  = flag.String("target", "", "Target token ID")
	algorithm = flag.String("algorithm", cover.CenterCorners.String(), "Cover algorithm")
	out       = flag.String("out", "covermap.html", "Output HTML file")
	span      = flag.Int("span", 20, "Half-width of the swept cell region around the target")
)

func main() {
	flag.Parse()

	alg, err := cover.ParseAlgorithm(*algorithm)
	if err != nil {
		log.Fatalf("[covermap] %v", err)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("[covermap] failed to open database: %v", err)
	}
	defer db.Close()

	store, err := scene.NewStore(db)
	if err != nil {
		log.Fatalf("[covermap] %v", err)
	}
	sc, err := store.LoadScene(*sceneID)
	if err != nil {
		log.Fatalf("[covermap] %v", err)
	}
	target := sc.Token(*targetID)
	if target == nil {
		log.Fatalf("[covermap] target token %s not in scene", *targetID)
	}
	if !sc.Grid.Discrete() {
		log.Fatalf("[covermap] scene %s has no discrete grid to sweep", sc.ID)
	}

	hm, err := renderHeatmap(sc, target, alg, *span)
	if err != nil {
		log.Fatalf("[covermap] %v", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("[covermap] failed to create %s: %v", *out, err)
	}
	defer f.Close()
	if err := hm.Render(f); err != nil {
		log.Fatalf("[covermap] failed to render heatmap: %v", err)
	}
	log.Printf("[covermap] wrote %s", *out)
}

// renderHeatmap sweeps a probe viewer over the grid cells around the target
// and charts the resulting category per cell.
func renderHeatmap(sc *scene.Scene, target *scene.Token, alg cover.Algorithm, span int) (*charts.HeatMap, error) {
	size := sc.Grid.Size
	center := target.Center()
	ci := int(center.X / size)
	cj := int(center.Y / size)

	settings := config.Defaults()
	cfg := settings.CoverConfig()

	xLabels := make([]string, 0, 2*span+1)
	for i := -span; i <= span; i++ {
		xLabels = append(xLabels, fmt.Sprintf("%d", ci+i))
	}

	var data []opts.HeatMapData
	for j := -span; j <= span; j++ {
		for i := -span; i <= span; i++ {
			x := float64(ci+i) * size
			y := float64(cj+j) * size
			probe := scene.NewToken("probe", geom.Rect{X: x, Y: y, W: size, H: size}, target.BottomZ, target.TopZ)

			calc := cover.NewCalculator(sc, cfg)
			cat, err := calc.TargetCover(probe, target, alg)
			if err != nil {
				return nil, fmt.Errorf("cover at cell (%d,%d): %w", ci+i, cj+j, err)
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{i + span, j + span, int(cat)}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Cover Map", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Cover Map",
			Subtitle: fmt.Sprintf("target=%s algorithm=%s", target.Name, alg),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(cover.Full),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#1f9e89", "#6ece58", "#fde725", "#fd9e44", "#d7191c"}},
		}),
	)
	hm.SetXAxis(xLabels).AddSeries("cover", data)
	return hm, nil
}
