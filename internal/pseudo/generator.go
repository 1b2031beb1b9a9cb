/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package pseudo produces plausible synthetic substitutes for sensitive values.
// A Generator remembers every substitute it hands out, so the same original
// value of the same type is always replaced the same way.
package pseudo

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

// DateLayout is the format of generated dates (dd.mm.yyyy).
const DateLayout = "02.01.2006"

var (
	minDate = time.Date(1950, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
)

type cacheKey struct {
	value string
	typ   entity.Type
}

// Generator maps original values to synthetic ones. It is not safe for
// concurrent use; give each job its own instance.
type Generator struct {
	rng   *rand.Rand
	cache map[cacheKey]string
}

// New returns a generator seeded from the current time.
func New() *Generator {
	return NewWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand returns a generator drawing from rng. Tests pass a fixed seed.
func NewWithRand(rng *rand.Rand) *Generator {
	return &Generator{rng: rng, cache: make(map[cacheKey]string)}
}

// Generate returns the substitute for value. The first call for a (value, typ)
// pair synthesizes and remembers it; later calls return the remembered one.
func (g *Generator) Generate(value string, typ entity.Type) string {
	key := cacheKey{value: value, typ: typ}
	if cached, ok := g.cache[key]; ok {
		return cached
	}
	out := g.synthesize(typ)
	g.cache[key] = out
	return out
}

// Len returns the number of cached substitutes.
func (g *Generator) Len() int {
	return len(g.cache)
}

// Reset forgets every cached substitute.
func (g *Generator) Reset() {
	g.cache = make(map[cacheKey]string)
}

func (g *Generator) synthesize(typ entity.Type) string {
	switch typ {
	case entity.Person:
		return g.personName()
	case entity.Date:
		return g.date()
	case entity.Contact, entity.Email:
		return g.email()
	case entity.Organization:
		return fmt.Sprintf("%s «%s»", g.pick(companyForms), g.pick(companyNames))
	case entity.Location:
		return g.pick(cities)
	case entity.SensitiveNumber:
		return fmt.Sprintf("%d", 10000000+g.rng.Intn(90000000))
	case entity.Phone:
		return g.phone()
	case entity.URL:
		return fmt.Sprintf("%s-%s.%s", g.pick(loginWords), g.pick(loginWords), g.pick(hostTLDs))
	default:
		return g.pick(genericWords)
	}
}

func (g *Generator) pick(list []string) string {
	return list[g.rng.Intn(len(list))]
}

func (g *Generator) personName() string {
	surname := g.pick(surnameStems)
	if g.rng.Intn(2) == 0 {
		return g.pick(maleFirstNames) + " " + surname
	}
	return g.pick(femaleFirstNames) + " " + surname + "а"
}

func (g *Generator) date() string {
	span := maxDate.Sub(minDate)
	days := g.rng.Int63n(int64(span/(24*time.Hour)) + 1)
	return minDate.AddDate(0, 0, int(days)).Format(DateLayout)
}

func (g *Generator) email() string {
	return fmt.Sprintf("%s.%s%d@%s", g.pick(loginWords), g.pick(loginWords), g.rng.Intn(100), g.pick(emailDomains))
}

// phone follows the +7(9##)####### mask.
func (g *Generator) phone() string {
	var b strings.Builder
	b.WriteString("+7(9")
	for i := 0; i < 2; i++ {
		b.WriteByte(byte('0' + g.rng.Intn(10)))
	}
	b.WriteString(")")
	for i := 0; i < 7; i++ {
		b.WriteByte(byte('0' + g.rng.Intn(10)))
	}
	return b.String()
}
