// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"context"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/Fantom-foundation/Shardkit/go/ct/fixture"
	"golang.org/x/sync/errgroup"
)

// ForEachVector runs opFunction on all given vectors using numJobs parallel
// workers. A goroutine periodically reports the progress through
// printProgress. Processing stops at the first error returned by
// opFunction or when the context is cancelled.
func ForEachVector(
	ctx context.Context,
	vectors []*fixture.Vector,
	opFunction func(vector *fixture.Vector) error,
	printProgress func(relativeTime time.Duration, rate float64, current int64),
	numJobs int,
) error {
	var counter atomic.Int64

	done := make(chan bool)
	printerDone := make(chan bool)
	go func() {
		defer close(printerDone)
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		startTime := time.Now()
		lastTime := startTime
		lastCounter := int64(0)
		for {
			select {
			case <-done:
				return
			case curTime := <-ticker.C:
				cur := counter.Load()

				diffCounter := cur - lastCounter
				diffTime := curTime.Sub(lastTime)

				lastTime = curTime
				lastCounter = cur

				relativeTime := curTime.Sub(startTime)
				rate := float64(diffCounter) / diffTime.Seconds()
				printProgress(relativeTime, rate, cur)
			}
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(numJobs)
	for _, vector := range vectors {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			counter.Add(1)
			return opFunction(vector)
		})
	}
	err := group.Wait()

	close(done)   // < signals progress printer to stop
	<-printerDone // < blocks until channel is closed by progress printer

	if err == nil {
		err = ctx.Err()
	}
	return err
}

func FilterVectors(vectors []*fixture.Vector, filter *regexp.Regexp) []*fixture.Vector {
	if filter == nil {
		return vectors
	}
	res := make([]*fixture.Vector, 0, len(vectors))
	for _, vector := range vectors {
		if filter.MatchString(vector.Name) {
			res = append(res, vector)
		}
	}
	return res
}
