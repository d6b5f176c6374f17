package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	apiURL  string
	apiKey  string
)

var rootCmd = &cobra.Command{
	Use:   "syncenginectl",
	Short: "syncenginectl runs and operates the sync engine",
	Long:  `syncenginectl serves the sync engine's admin surface and, as a client, drives runs against a running instance.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "engine config file (server mode)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "url", "http://localhost:8080", "sync engine admin API URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "key", "", "admin bearer key")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("key", rootCmd.PersistentFlags().Lookup("key"))
}

func initConfig() {
	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".syncenginectl")
	}

	viper.SetEnvPrefix("SYNCENGINE")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using CLI config file:", viper.ConfigFileUsed())
	}
}
