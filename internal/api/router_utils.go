package api

import (
	"fmt"
	"strings"

	"github.com/gorilla/mux"
)

// PrintRoutes walks through all routes registered in the router and prints
// them, for startup debugging.
func PrintRoutes(r *mux.Router) {
	fmt.Println("\n=== Registered Routes ===")
	fmt.Println("METHOD\tPATH")
	fmt.Println("-------------------------------")

	_ = r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()

		// If no methods are specified, assume all methods
		methodStr := "ANY"
		if len(methods) > 0 {
			methodStr = strings.Join(methods, ",")
		}

		fmt.Printf("%s\t%s\n", methodStr, pathTemplate)
		return nil
	})
	fmt.Println()
}
