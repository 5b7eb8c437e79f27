// Package all pulls in every source adapter for side-effect registration.
package all

import (
	_ "github.com/MGMAppDev/soccerview/internal/scraper/adapters/demosphere"
	_ "github.com/MGMAppDev/soccerview/internal/scraper/adapters/gotsport"
	_ "github.com/MGMAppDev/soccerview/internal/scraper/adapters/htgsports"
)
