package cache_test

import (
	"fmt"
	"time"

	"github.com/leonardcser/querycache/internal/cache"
)

func ExampleInstance() {
	inst := cache.New[string]("queries", cache.Config{TTL: 5 * time.Minute})
	defer inst.Close()

	inst.CacheSync("golang", "results for golang")

	if v, hit, _ := inst.Fetch("golang"); hit {
		fmt.Println(v)
	}

	_, hit, _ := inst.Fetch("rust")
	fmt.Println("rust cached:", hit)
	// Output:
	// results for golang
	// rust cached: false
}

func ExampleInstance_eviction() {
	inst := cache.New[string]("queries", cache.Config{MaxSize: 2})
	defer inst.Close()

	inst.CacheSync("b", "2")
	inst.CacheSync("c", "3")
	inst.CacheSync("d", "4") // at capacity: evicts "b", the smallest key

	for _, k := range []string{"b", "c", "d"} {
		_, hit, _ := inst.Fetch(k)
		fmt.Printf("%s hit: %v\n", k, hit)
	}
	// Output:
	// b hit: false
	// c hit: true
	// d hit: true
}

func ExampleRegistry() {
	reg := cache.NewRegistry[string]()
	defer reg.Close()

	queries := reg.GetOrCreate("web_search", cache.Config{})
	pages := reg.GetOrCreate("web_fetch", cache.Config{TTL: 15 * time.Minute})

	queries.CacheSync("golang", "10 results")

	_, hit, _ := pages.Fetch("golang")
	fmt.Println("pages has golang:", hit)

	v, _, _ := queries.Fetch("golang")
	fmt.Println("queries has golang:", v)
	// Output:
	// pages has golang: false
	// queries has golang: 10 results
}
