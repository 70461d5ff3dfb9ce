package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"GreenDeck/internal/calculator"
	"GreenDeck/internal/report"
)

var bondParams = calculator.DefaultParameters()

var bondCmd = &cobra.Command{
	Use:   "bond",
	Short: "Compare a conventional bond with its green counterpart",
	Long: `Prices a bond at the conventional discount rate and at the rate lowered by
the greenium, and prints price, duration and convexity side by side.

Examples:
  greendeck bond
  greendeck bond --rate 4 --greenium 8 --maturity 20 --coupon 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmp := calculator.Compare(calculator.Clamp(bondParams))
		fmt.Fprint(cmd.OutOrStdout(), report.FormatBondComparison(cmp))
		return nil
	},
}

func init() {
	bondCmd.Flags().Float64Var(&bondParams.DiscountRate, "rate", bondParams.DiscountRate, "Conventional discount rate in percent (0-10)")
	bondCmd.Flags().Float64Var(&bondParams.GreeniumBps, "greenium", bondParams.GreeniumBps, "Greenium in basis points (0-10)")
	bondCmd.Flags().IntVar(&bondParams.MaturityYears, "maturity", bondParams.MaturityYears, "Years to maturity (1-30)")
	bondCmd.Flags().Float64Var(&bondParams.CouponRate, "coupon", bondParams.CouponRate, "Annual coupon rate in percent (0-8)")
	bondCmd.Flags().Float64Var(&bondParams.FaceValue, "face", bondParams.FaceValue, "Face value")
	rootCmd.AddCommand(bondCmd)
}
