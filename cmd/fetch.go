package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/parcelworks/lvt-cli/internal/census"
	"github.com/parcelworks/lvt-cli/internal/model"
	"github.com/parcelworks/lvt-cli/internal/parcel"
	"github.com/parcelworks/lvt-cli/pkg/geocode"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch census and parcel source data",
	Long:  "Commands for downloading ACS demographics, TIGERweb boundaries, and parcel tax rolls into the local store.",
}

// -- fetch census --

var fetchCensusCmd = &cobra.Command{
	Use:   "census",
	Short: "Fetch ACS block-group demographics for a county",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		county, _ := cmd.Flags().GetString("county")
		dataset, _ := cmd.Flags().GetString("dataset")
		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			year = cfg.Census.Year
		}

		client := initCensusClient()
		tracts, err := client.FetchBlockGroups(ctx, county, year)
		if err != nil {
			return eris.Wrap(err, "fetch census")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.SaveTracts(ctx, dataset, county, tracts); err != nil {
			return eris.Wrap(err, "fetch census: save")
		}

		fmt.Fprintf(os.Stdout, "Saved %d block groups to dataset %q\n", len(tracts), dataset)
		return nil
	},
}

// -- fetch parcels --

var fetchParcelsCmd = &cobra.Command{
	Use:   "parcels",
	Short: "Fetch a parcel tax roll into the store",
	Long:  "Loads parcels from an ArcGIS feature service, a CSV or Excel tax roll, or a local shapefile. Parcels without a geo_id can be assigned one spatially from TIGERweb boundaries.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dataset, _ := cmd.Flags().GetString("dataset")
		county, _ := cmd.Flags().GetString("county")
		csvPath, _ := cmd.Flags().GetString("csv")
		xlsxPath, _ := cmd.Flags().GetString("xlsx")
		sheet, _ := cmd.Flags().GetString("sheet")
		shpPath, _ := cmd.Flags().GetString("shapefile")
		service, _ := cmd.Flags().GetString("service")
		layer, _ := cmd.Flags().GetInt("layer")
		doGeocode, _ := cmd.Flags().GetBool("geocode")
		assign, _ := cmd.Flags().GetBool("assign-geoids")

		var parcels []model.ParcelRecord
		var err error
		switch {
		case csvPath != "":
			parcels, err = parcel.LoadCSVFile(csvPath)
		case xlsxPath != "":
			parcels, err = parcel.LoadXLSXFile(xlsxPath, sheet)
		case shpPath != "":
			if strings.HasSuffix(strings.ToLower(shpPath), ".zip") {
				parcels, err = parcel.LoadShapefileArchive(shpPath, parcelFieldMap())
			} else {
				parcels, err = parcel.LoadShapefile(shpPath, parcelFieldMap())
			}
		default:
			if service == "" {
				service = cfg.Parcel.FeatureServerURL
			}
			if service == "" {
				return eris.New("fetch parcels: one of --csv, --xlsx, --shapefile, or --service is required")
			}
			client := parcel.NewFeatureClient(initFetcher(), service)
			parcels, err = client.FetchParcels(ctx, dataset, layer, parcelFieldMap())
		}
		if err != nil {
			return eris.Wrap(err, "fetch parcels")
		}

		if doGeocode {
			geocoded, err := parcel.GeocodeParcels(ctx, geocode.NewClient(), parcels)
			if err != nil {
				return eris.Wrap(err, "fetch parcels")
			}
			fmt.Fprintf(os.Stdout, "Geocoded %d parcel addresses\n", geocoded)
		}

		if assign {
			if county == "" {
				return eris.New("fetch parcels: --county is required with --assign-geoids")
			}
			boundaries, err := initCensusClient().FetchBlockGroupBoundaries(ctx, county)
			if err != nil {
				return eris.Wrap(err, "fetch parcels: boundaries")
			}
			assigned := census.AssignGeoIDs(parcels, boundaries)
			fmt.Fprintf(os.Stdout, "Assigned geo_id to %d parcels spatially\n", assigned)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.SaveParcels(ctx, dataset, county, parcels); err != nil {
			return eris.Wrap(err, "fetch parcels: save")
		}

		fmt.Fprintf(os.Stdout, "Saved %d parcels to dataset %q\n", len(parcels), dataset)
		return nil
	},
}

func init() {
	fetchCensusCmd.Flags().String("county", "", "5-digit county FIPS (state + county)")
	fetchCensusCmd.Flags().String("dataset", "", "dataset name to store under")
	fetchCensusCmd.Flags().Int("year", 0, "ACS 5-year vintage (default from config)")
	_ = fetchCensusCmd.MarkFlagRequired("county")
	_ = fetchCensusCmd.MarkFlagRequired("dataset")

	fetchParcelsCmd.Flags().String("dataset", "", "dataset name to store under")
	fetchParcelsCmd.Flags().String("county", "", "5-digit county FIPS (for boundary assignment and bookkeeping)")
	fetchParcelsCmd.Flags().String("csv", "", "path to a CSV tax roll")
	fetchParcelsCmd.Flags().String("xlsx", "", "path to an Excel tax roll")
	fetchParcelsCmd.Flags().String("sheet", "", "worksheet name for --xlsx (default first sheet)")
	fetchParcelsCmd.Flags().String("shapefile", "", "path to a parcel shapefile (.shp or zipped archive)")
	fetchParcelsCmd.Flags().String("service", "", "ArcGIS FeatureServer base URL (default from config)")
	fetchParcelsCmd.Flags().Int("layer", 0, "feature service layer index")
	fetchParcelsCmd.Flags().Bool("geocode", false, "geocode parcel addresses that lack coordinates")
	fetchParcelsCmd.Flags().Bool("assign-geoids", false, "assign missing geo_ids from parcel centroids")
	_ = fetchParcelsCmd.MarkFlagRequired("dataset")

	fetchCmd.AddCommand(fetchCensusCmd)
	fetchCmd.AddCommand(fetchParcelsCmd)
	rootCmd.AddCommand(fetchCmd)
}
